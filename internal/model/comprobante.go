package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de comprobante interno.
const (
	ComprobanteTicket      = "ticket_interno"
	ComprobanteFacturaA    = "factura_a"
	ComprobanteFacturaB    = "factura_b"
	ComprobanteFacturaC    = "factura_c"
	ComprobanteNotaCredito = "nota_credito"
)

// Comprobante is the internally-numbered fiscal document for a sale. The
// number comes from ContadorFiscal inside the sale transaction; the composite
// unique index is the second net against a repeated number for the same
// (punto_venta, tipo, letra) key.
type Comprobante struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID      uuid.UUID `gorm:"type:uuid;index;not null"`
	PuntoVenta   int       `gorm:"not null;uniqueIndex:idx_comprobante_numero"`
	Tipo         string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_comprobante_numero"`
	Letra        string    `gorm:"type:varchar(1);not null;uniqueIndex:idx_comprobante_numero"`
	Numero       int64     `gorm:"not null;uniqueIndex:idx_comprobante_numero"`
	MontoNeto    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MontoTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time
}

// ContadorFiscal holds the last-issued number per (punto_venta, tipo, letra).
// One row per key, incremented with a single atomic upsert so concurrent
// first issuances cannot race into duplicates.
type ContadorFiscal struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PuntoVenta int       `gorm:"not null;uniqueIndex:idx_contador_clave"`
	Tipo       string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_contador_clave"`
	Letra      string    `gorm:"type:varchar(1);not null;uniqueIndex:idx_contador_clave"`
	Ultimo     int64     `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (ContadorFiscal) TableName() string { return "contadores_fiscales" }
