package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de movimiento de cuenta corriente.
const (
	CtaCteCargo   = "cargo"
	CtaCteReverso = "reverso"
)

// MovimientoCtaCte records an account-receivable charge produced by a sale
// paid (fully or partially) on customer account. These entries bypass the
// cash register entirely; cancelling the sale appends a mirroring reverso.
// Append-only, like every other ledger in the system.
type MovimientoCtaCte struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClienteRef string          `gorm:"not null;index"`
	VentaID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Tipo       string          `gorm:"type:varchar(10);not null"`
	Monto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UsuarioID  *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt  time.Time
}

func (MovimientoCtaCte) TableName() string { return "movimientos_cta_cte" }
