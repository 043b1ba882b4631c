package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
)

// AuditoriaRepository is append-only: Create inside a transaction plus reads.
// No Update or Delete exists, by contract.
type AuditoriaRepository interface {
	CreateTx(tx *gorm.DB, e *model.EventoAuditoria) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EventoAuditoria, error)
	List(ctx context.Context, filter dto.AuditoriaFilter) ([]model.EventoAuditoria, int64, error)
}

type auditoriaRepo struct{ db *gorm.DB }

func NewAuditoriaRepository(db *gorm.DB) AuditoriaRepository { return &auditoriaRepo{db: db} }

func (r *auditoriaRepo) CreateTx(tx *gorm.DB, e *model.EventoAuditoria) error {
	return tx.Create(e).Error
}

func (r *auditoriaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.EventoAuditoria, error) {
	var e model.EventoAuditoria
	err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error
	return &e, err
}

func (r *auditoriaRepo) List(ctx context.Context, filter dto.AuditoriaFilter) ([]model.EventoAuditoria, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.EventoAuditoria{})
	if filter.Entidad != "" {
		q = q.Where("entidad = ?", filter.Entidad)
	}
	if filter.EntidadID != "" {
		q = q.Where("entidad_id = ?", filter.EntidadID)
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
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var eventos []model.EventoAuditoria
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&eventos).Error
	return eventos, total, err
}
