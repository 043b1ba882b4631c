package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is the catalog collaborator as seen from the sales core: the core
// only reads activity, current price and quantity on hand, and only writes
// stock_actual (always through guarded decrements inside a transaction).
// Product identity and the rest of the catalog belong to another system.
type Producto struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoBarras string          `gorm:"uniqueIndex;not null"`
	Nombre       string          `gorm:"index;not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockActual  int             `gorm:"not null;default:0"`
	Activo       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
