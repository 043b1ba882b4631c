package model

import (
	"time"

	"github.com/google/uuid"
)

// Tipos de movimiento de stock.
const (
	StockIngreso        = "ingreso"
	StockEgreso         = "egreso"
	StockVenta          = "venta"
	StockVentaRevertida = "venta_revertida"
	StockAjuste         = "ajuste"
)

// MovimientoStock registra cada cambio de stock de un producto. Append-only:
// nunca se actualiza ni se borra; una anulación agrega el movimiento inverso.
type MovimientoStock struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo          string    `gorm:"type:varchar(20);not null"`
	Cantidad      int       `gorm:"not null"` // magnitud (>0); la dirección la da Tipo
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	VentaID       *uuid.UUID `gorm:"type:uuid;index"`
	UsuarioID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization.
func (MovimientoStock) TableName() string { return "movimientos_stock" }
