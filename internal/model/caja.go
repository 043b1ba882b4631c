package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados de la caja diaria.
const (
	CajaAbierta = "abierta"
	CajaCerrada = "cerrada"
)

// Tipos de movimiento de caja.
const (
	MovIngreso = "ingreso"
	MovEgreso  = "egreso"
)

// Orígenes de movimiento de caja.
const (
	OrigenManual         = "manual"
	OrigenVenta          = "venta"
	OrigenReversionVenta = "reversion_venta"
)

// ReferenciaMultiple marks a merged ledger row whose grouped payments carried
// different references.
const ReferenciaMultiple = "multiple"

// DiaComercial normalizes an instant to the local calendar day. The register
// is partitioned by this value. It must be built from local date components:
// computing it from the UTC day-of-month shifts sales made after 21:00 in
// UTC-3 into the next day's register.
func DiaComercial(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// CajaDiaria is the daily register. One register per business day; flipping to
// cerrada is terminal — the next day opens a new row. Its monetary fields are
// NOT the source of truth: totals are always recomputed from MovimientoCaja
// rows (see CajaService). MontoInicial is the opening float, kept for the
// closing count; the legacy Monto* columns are advisory snapshots written at
// close, never read back as authoritative.
type CajaDiaria struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FechaDia time.Time `gorm:"not null;index"`
	Estado   string    `gorm:"type:varchar(20);not null;default:'abierta'"`

	AbiertaPor   *uuid.UUID      `gorm:"type:uuid"`
	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	CerradaPor       *uuid.UUID `gorm:"type:uuid"`
	EfectivoContado  *decimal.Decimal `gorm:"type:decimal(12,2)"`
	EfectivoEsperado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	NotasCierre      *string

	AbiertaEn time.Time
	CerradaEn *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:CajaID"`
}

func (CajaDiaria) TableName() string { return "cajas_diarias" }

// MovimientoCaja is an immutable entry in the register ledger. Movements are
// NEVER updated or deleted — a cancellation appends mirrored egreso rows.
// Non-manual entries always carry the originating sale and payment method.
type MovimientoCaja struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CajaID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Tipo       string          `gorm:"type:varchar(10);not null"`
	Origen     string          `gorm:"type:varchar(20);not null"`
	Monto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago *string         `gorm:"type:varchar(20)"`
	Banco      *string         `gorm:"type:varchar(50)"`
	Recargo    *decimal.Decimal `gorm:"type:decimal(12,2)"`

	VentaID     *uuid.UUID `gorm:"type:uuid;index"`
	VentaNumero *string
	Referencia  *string
	Descripcion string `gorm:"not null"`

	UsuarioID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

// ResumenCaja is the materialized view of a register: a pure fold over its
// ledger rows, recomputed on every read and never written back.
type ResumenCaja struct {
	CajaID         uuid.UUID                  `json:"caja_id"`
	FechaDia       time.Time                  `json:"fecha_dia"`
	Estado         string                     `json:"estado"`
	MontoInicial   decimal.Decimal            `json:"monto_inicial"`
	Efectivo       decimal.Decimal            `json:"efectivo"`
	Tarjetas       decimal.Decimal            `json:"tarjetas"`
	Transferencias decimal.Decimal            `json:"transferencias"`
	PorBanco       map[string]decimal.Decimal `json:"por_banco"`
	Total          decimal.Decimal            `json:"total"`
	CantidadVentas int                        `json:"cantidad_ventas"`
}
