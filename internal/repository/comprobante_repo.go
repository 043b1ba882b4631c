package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

type ComprobanteRepository interface {
	CreateTx(tx *gorm.DB, c *model.Comprobante) error
	FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.Comprobante, error)

	// ProximoNumeroTx atomically increments and returns the counter for
	// (puntoVenta, tipo, letra), creating it on first use. Must be called
	// inside the caller's transaction.
	ProximoNumeroTx(tx *gorm.DB, puntoVenta int, tipo, letra string) (int64, error)
}

type comprobanteRepo struct{ db *gorm.DB }

func NewComprobanteRepository(db *gorm.DB) ComprobanteRepository {
	return &comprobanteRepo{db: db}
}

func (r *comprobanteRepo) CreateTx(tx *gorm.DB, c *model.Comprobante) error {
	return tx.Create(c).Error
}

func (r *comprobanteRepo) FindByVentaID(ctx context.Context, ventaID uuid.UUID) (*model.Comprobante, error) {
	var c model.Comprobante
	err := r.db.WithContext(ctx).Where("venta_id = ?", ventaID).First(&c).Error
	return &c, err
}

func (r *comprobanteRepo) ProximoNumeroTx(tx *gorm.DB, puntoVenta int, tipo, letra string) (int64, error) {
	// Single atomic read-modify-write. The upsert seeds the counter at 1 so
	// concurrent first issuances for a new key cannot both read zero.
	var numero int64
	err := tx.Raw(`
		INSERT INTO contadores_fiscales (id, punto_venta, tipo, letra, ultimo, updated_at)
		VALUES (gen_random_uuid(), ?, ?, ?, 1, NOW())
		ON CONFLICT (punto_venta, tipo, letra)
		DO UPDATE SET ultimo = contadores_fiscales.ultimo + 1, updated_at = NOW()
		RETURNING ultimo`,
		puntoVenta, tipo, letra,
	).Scan(&numero).Error
	return numero, err
}
