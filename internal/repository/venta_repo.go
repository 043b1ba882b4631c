package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

// VentaListFilter filters the sale listing. Desde/Hasta are half-open
// business-day bounds computed by the caller in the configured timezone;
// filtering by instant range keeps the listing independent of the database
// server's timezone.
type VentaListFilter struct {
	Estado string
	Desde  time.Time
	Hasta  time.Time
	Page   int
	Limit  int
}

type VentaRepository interface {
	CreateTx(tx *gorm.DB, v *model.Venta) error
	UpdateTx(tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	ExisteNumero(ctx context.Context, numero string) (bool, error)
	List(ctx context.Context, filter VentaListFilter) ([]model.Venta, int64, error)
	DB() *gorm.DB // exposes the DB so the orchestrator can open transactions
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) CreateTx(tx *gorm.DB, v *model.Venta) error {
	return tx.Create(v).Error
}

func (r *ventaRepo) UpdateTx(tx *gorm.DB, v *model.Venta) error {
	return tx.Save(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Preload("Items.Producto").Preload("Pagos").First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) ExisteNumero(ctx context.Context, numero string) (bool, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Select("id").Where("numero = ?", numero).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *ventaRepo) List(ctx context.Context, filter VentaListFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{})

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	q = q.Where("fecha >= ? AND fecha < ?", filter.Desde, filter.Hasta)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items.Producto").Preload("Pagos").
		Order("fecha DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}
