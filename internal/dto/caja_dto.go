package dto

import "github.com/shopspring/decimal"

type AbrirCajaRequest struct {
	MontoInicial decimal.Decimal `json:"monto_inicial" validate:"min=0"`
	// Fecha opcional (YYYY-MM-DD); default: el día comercial de hoy.
	Fecha string `json:"fecha" validate:"omitempty,datetime=2006-01-02"`
}

type CerrarCajaRequest struct {
	EfectivoContado decimal.Decimal `json:"efectivo_contado" validate:"min=0"`
	Notas           string          `json:"notas"`
}

// MovimientoManualRequest registra un ingreso o egreso manual contra la caja
// abierta del día.
type MovimientoManualRequest struct {
	Tipo        string          `json:"tipo" validate:"required,oneof=ingreso egreso"`
	Monto       decimal.Decimal `json:"monto" validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"required,min=3"`
}

type ResumenCajaResponse struct {
	CajaID         string                     `json:"caja_id"`
	FechaDia       string                     `json:"fecha_dia"`
	Estado         string                     `json:"estado"`
	MontoInicial   decimal.Decimal            `json:"monto_inicial"`
	Efectivo       decimal.Decimal            `json:"efectivo"`
	Tarjetas       decimal.Decimal            `json:"tarjetas"`
	Transferencias decimal.Decimal            `json:"transferencias"`
	PorBanco       map[string]decimal.Decimal `json:"por_banco"`
	Total          decimal.Decimal            `json:"total"`
	CantidadVentas int                        `json:"cantidad_ventas"`
}

type CierreCajaResponse struct {
	Resumen          ResumenCajaResponse `json:"resumen"`
	EfectivoContado  decimal.Decimal     `json:"efectivo_contado"`
	EfectivoEsperado decimal.Decimal     `json:"efectivo_esperado"`
	Diferencia       decimal.Decimal     `json:"diferencia"`
	Clasificacion    string              `json:"clasificacion"`
	Notas            string              `json:"notas"`
}
