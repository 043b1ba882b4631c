package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

// MovimientoStockFilter defines filters for listing stock movements.
type MovimientoStockFilter struct {
	ProductoID *uuid.UUID
	Tipo       string
	Page       int
	Limit      int
}

type MovimientoStockRepository interface {
	CreateTx(tx *gorm.DB, m *model.MovimientoStock) error
	CreateBatchTx(tx *gorm.DB, movs []model.MovimientoStock) error
	// ExisteDeVentaTx is the idempotency probe for batch reversal: true when
	// the sale already produced movements of the given tipo.
	ExisteDeVentaTx(tx *gorm.DB, ventaID uuid.UUID, tipo string) (bool, error)
	List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
	ListByVenta(ctx context.Context, ventaID uuid.UUID) ([]model.MovimientoStock, error)
}

type movimientoStockRepo struct{ db *gorm.DB }

func NewMovimientoStockRepository(db *gorm.DB) MovimientoStockRepository {
	return &movimientoStockRepo{db: db}
}

func (r *movimientoStockRepo) CreateTx(tx *gorm.DB, m *model.MovimientoStock) error {
	return tx.Create(m).Error
}

func (r *movimientoStockRepo) CreateBatchTx(tx *gorm.DB, movs []model.MovimientoStock) error {
	if len(movs) == 0 {
		return nil
	}
	return tx.Create(&movs).Error
}

func (r *movimientoStockRepo) ExisteDeVentaTx(tx *gorm.DB, ventaID uuid.UUID, tipo string) (bool, error) {
	var count int64
	err := tx.Model(&model.MovimientoStock{}).
		Where("venta_id = ? AND tipo = ?", ventaID, tipo).
		Count(&count).Error
	return count > 0, err
}

func (r *movimientoStockRepo) List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoStock{}).Preload("Producto")
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movimientos []model.MovimientoStock
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}

func (r *movimientoStockRepo) ListByVenta(ctx context.Context, ventaID uuid.UUID) ([]model.MovimientoStock, error) {
	var movimientos []model.MovimientoStock
	err := r.db.WithContext(ctx).
		Where("venta_id = ?", ventaID).
		Order("created_at ASC").
		Find(&movimientos).Error
	return movimientos, err
}
