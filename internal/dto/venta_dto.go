package dto

import "github.com/shopspring/decimal"

// ItemVentaRequest: the price is NOT accepted from the client — it is
// snapshotted from the catalog at registration time.
type ItemVentaRequest struct {
	ProductoID   string          `json:"producto_id" validate:"required,uuid4"`
	Cantidad     int             `json:"cantidad" validate:"required,gt=0"`
	DescuentoPct decimal.Decimal `json:"descuento_pct" validate:"min=0,max=100"`
}

type PagoRequest struct {
	Metodo     string           `json:"metodo" validate:"required,oneof=efectivo tarjeta transferencia debito credito cuenta_corriente"`
	Monto      decimal.Decimal  `json:"monto" validate:"required,gt=0"`
	Referencia *string          `json:"referencia,omitempty"`
	Banco      *string          `json:"banco,omitempty"`
	RecargoPct *decimal.Decimal `json:"recargo_pct,omitempty"`
}

type RegistrarVentaRequest struct {
	Items             []ItemVentaRequest `json:"items" validate:"dive"`
	Pagos             []PagoRequest      `json:"pagos" validate:"required,min=1,dive"`
	DescuentoPct      decimal.Decimal    `json:"descuento_pct" validate:"min=0,max=100"`
	TipoComprobante   string             `json:"tipo_comprobante" validate:"omitempty,oneof=ticket_interno factura_a factura_b factura_c"`
	EsCuentaCorriente bool               `json:"es_cuenta_corriente"`
	ClienteRef        *string            `json:"cliente_ref,omitempty"`
	Borrador          bool               `json:"borrador"`
}

type AnularVentaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3"`
}

type ItemVentaResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto,omitempty"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	DescuentoPct   decimal.Decimal `json:"descuento_pct"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PagoResponse struct {
	Metodo     string           `json:"metodo"`
	Monto      decimal.Decimal  `json:"monto"`
	Referencia *string          `json:"referencia,omitempty"`
	Banco      *string          `json:"banco,omitempty"`
	RecargoPct *decimal.Decimal `json:"recargo_pct,omitempty"`
}

type VentaResponse struct {
	ID           string              `json:"id"`
	Numero       string              `json:"numero"`
	VendedorID   string              `json:"vendedor_id"`
	Fecha        string              `json:"fecha"`
	Items        []ItemVentaResponse `json:"items"`
	Pagos        []PagoResponse      `json:"pagos"`
	Subtotal     decimal.Decimal     `json:"subtotal"`
	DescuentoPct decimal.Decimal     `json:"descuento_pct"`
	Recargo      decimal.Decimal     `json:"recargo"`
	Total        decimal.Decimal     `json:"total"`
	Estado       string              `json:"estado"`
	Comprobante  *ComprobanteResponse `json:"comprobante,omitempty"`
}

type VentaFilter struct {
	Fecha  string `form:"fecha"`
	Estado string `form:"estado"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}
