package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

// CajaRepository persists the daily register and its append-only ledger.
// There is deliberately no Update/Delete for movements.
type CajaRepository interface {
	CreateCaja(ctx context.Context, c *model.CajaDiaria) error
	UpdateCaja(ctx context.Context, c *model.CajaDiaria) error
	FindAbiertaPorDia(ctx context.Context, dia time.Time) (*model.CajaDiaria, error)
	FindAbiertaPorDiaTx(tx *gorm.DB, dia time.Time) (*model.CajaDiaria, error)
	// FindUltimaAbierta returns the most recent register still open, for any
	// day — a register left open overnight must remain closable.
	FindUltimaAbierta(ctx context.Context) (*model.CajaDiaria, error)
	FindPorDia(ctx context.Context, dia time.Time) (*model.CajaDiaria, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.CajaDiaria, error)

	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, cajaID uuid.UUID) ([]model.MovimientoCaja, error)
	// MovimientosDeVentaTx returns the ledger rows a sale already produced for
	// the given origin — the idempotency probe for recording and reversal.
	MovimientosDeVentaTx(tx *gorm.DB, ventaID uuid.UUID, origen string) ([]model.MovimientoCaja, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) CreateCaja(ctx context.Context, c *model.CajaDiaria) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *cajaRepo) UpdateCaja(ctx context.Context, c *model.CajaDiaria) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *cajaRepo) FindAbiertaPorDia(ctx context.Context, dia time.Time) (*model.CajaDiaria, error) {
	var c model.CajaDiaria
	err := r.db.WithContext(ctx).
		Where("fecha_dia = ? AND estado = ?", dia, model.CajaAbierta).
		First(&c).Error
	return &c, err
}

func (r *cajaRepo) FindAbiertaPorDiaTx(tx *gorm.DB, dia time.Time) (*model.CajaDiaria, error) {
	var c model.CajaDiaria
	err := tx.Where("fecha_dia = ? AND estado = ?", dia, model.CajaAbierta).First(&c).Error
	return &c, err
}

func (r *cajaRepo) FindUltimaAbierta(ctx context.Context) (*model.CajaDiaria, error) {
	var c model.CajaDiaria
	err := r.db.WithContext(ctx).
		Where("estado = ?", model.CajaAbierta).
		Order("fecha_dia DESC").
		First(&c).Error
	return &c, err
}

func (r *cajaRepo) FindPorDia(ctx context.Context, dia time.Time) (*model.CajaDiaria, error) {
	var c model.CajaDiaria
	err := r.db.WithContext(ctx).
		Where("fecha_dia = ?", dia).
		Order("abierta_en DESC").
		First(&c).Error
	return &c, err
}

func (r *cajaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CajaDiaria, error) {
	var c model.CajaDiaria
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return &c, err
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, cajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("caja_id = ?", cajaID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) MovimientosDeVentaTx(tx *gorm.DB, ventaID uuid.UUID, origen string) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := tx.Where("venta_id = ? AND origen = ?", ventaID, origen).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}
