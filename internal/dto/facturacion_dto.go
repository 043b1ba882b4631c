package dto

import "github.com/shopspring/decimal"

type ComprobanteResponse struct {
	ID         string          `json:"id"`
	VentaID    string          `json:"venta_id"`
	PuntoVenta int             `json:"punto_venta"`
	Tipo       string          `json:"tipo"`
	Letra      string          `json:"letra"`
	Numero     int64           `json:"numero"`
	MontoNeto  decimal.Decimal `json:"monto_neto"`
	MontoTotal decimal.Decimal `json:"monto_total"`
	CreatedAt  string          `json:"created_at"`
}
