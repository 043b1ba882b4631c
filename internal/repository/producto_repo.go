package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

// ProductoRepository is the catalog collaborator contract. The sales core
// reads activity, price and stock, and mutates stock_actual only through the
// guarded Tx methods below — never any other catalog field.
type ProductoRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error)
	// FindByIDTx reads through the caller's transaction so the stock snapshot
	// recorded in the movement row matches what the decrement saw.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error)

	// DescontarStockTx decrements stock only when enough quantity remains.
	// Returns gorm.ErrRecordNotFound via RowsAffected==0 semantics: the caller
	// must treat a zero-row update as insufficient stock and abort the tx.
	DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int64, error)
	// RestituirStockTx adds quantity back during a sale reversal.
	RestituirStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error

	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) DB() *gorm.DB { return r.db }

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productoRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error) {
	var productos []model.Producto
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&productos).Error
	return productos, err
}

func (r *productoRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := tx.First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productoRepo) DescontarStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int64, error) {
	res := tx.Model(&model.Producto{}).
		Where("id = ? AND stock_actual >= ?", id, cantidad).
		Update("stock_actual", gorm.Expr("stock_actual - ?", cantidad))
	return res.RowsAffected, res.Error
}

func (r *productoRepo) RestituirStockTx(tx *gorm.DB, id uuid.UUID, cantidad int) error {
	return tx.Model(&model.Producto{}).Where("id = ?", id).
		Update("stock_actual", gorm.Expr("stock_actual + ?", cantidad)).Error
}
