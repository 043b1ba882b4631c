package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

type CuentaCorrienteRepository interface {
	CreateTx(tx *gorm.DB, m *model.MovimientoCtaCte) error
	// MovimientosDeVentaTx is the idempotency probe: existing rows of the
	// given tipo mean the charge (or its reversal) already happened.
	MovimientosDeVentaTx(tx *gorm.DB, ventaID uuid.UUID, tipo string) ([]model.MovimientoCtaCte, error)
	ListByVenta(ctx context.Context, ventaID uuid.UUID) ([]model.MovimientoCtaCte, error)
}

type cuentaCorrienteRepo struct{ db *gorm.DB }

func NewCuentaCorrienteRepository(db *gorm.DB) CuentaCorrienteRepository {
	return &cuentaCorrienteRepo{db: db}
}

func (r *cuentaCorrienteRepo) CreateTx(tx *gorm.DB, m *model.MovimientoCtaCte) error {
	return tx.Create(m).Error
}

func (r *cuentaCorrienteRepo) MovimientosDeVentaTx(tx *gorm.DB, ventaID uuid.UUID, tipo string) ([]model.MovimientoCtaCte, error) {
	var movs []model.MovimientoCtaCte
	err := tx.Where("venta_id = ? AND tipo = ?", ventaID, tipo).Find(&movs).Error
	return movs, err
}

func (r *cuentaCorrienteRepo) ListByVenta(ctx context.Context, ventaID uuid.UUID) ([]model.MovimientoCtaCte, error) {
	var movs []model.MovimientoCtaCte
	err := r.db.WithContext(ctx).Where("venta_id = ?", ventaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}
