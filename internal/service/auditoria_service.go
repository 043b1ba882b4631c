package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ariel1092/sistema-control-sub001/internal/apierror"
	"github.com/ariel1092/sistema-control-sub001/internal/dto"
	"github.com/ariel1092/sistema-control-sub001/internal/model"
	"github.com/ariel1092/sistema-control-sub001/internal/repository"
)

// MetaAuditoria carries request metadata into the audit row.
type MetaAuditoria struct {
	IP        *string
	UserAgent *string
	Motivo    *string
}

// AuditoriaService appends tamper-evident events inside the caller's
// transaction. Events are never updated or deleted.
type AuditoriaService interface {
	RegistrarTx(tx *gorm.DB, entidad string, entidadID uuid.UUID, evento string, snapshot any, actor model.Actor, meta MetaAuditoria) (*model.EventoAuditoria, error)
	Listar(ctx context.Context, filter dto.AuditoriaFilter) ([]dto.EventoAuditoriaResponse, int64, error)
	Verificar(ctx context.Context, id uuid.UUID) (*dto.VerificacionResponse, error)
}

type auditoriaService struct {
	repo repository.AuditoriaRepository
}

func NewAuditoriaService(repo repository.AuditoriaRepository) AuditoriaService {
	return &auditoriaService{repo: repo}
}

func (s *auditoriaService) RegistrarTx(tx *gorm.DB, entidad string, entidadID uuid.UUID, evento string, snapshot any, actor model.Actor, meta MetaAuditoria) (*model.EventoAuditoria, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	// CreatedAt is fixed here, not by the DB, because the digest covers it.
	e := &model.EventoAuditoria{
		ID:        uuid.New(),
		Entidad:   entidad,
		EntidadID: entidadID,
		Evento:    evento,
		Snapshot:  raw,
		UsuarioID: actor.UsuarioID(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Motivo:    meta.Motivo,
		CreatedAt: time.Now().UTC(),
	}
	e.Digest = e.CalcularDigest()

	if err := s.repo.CreateTx(tx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *auditoriaService) Listar(ctx context.Context, filter dto.AuditoriaFilter) ([]dto.EventoAuditoriaResponse, int64, error) {
	eventos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.EventoAuditoriaResponse, 0, len(eventos))
	for _, e := range eventos {
		out = append(out, eventoToResponse(&e))
	}
	return out, total, nil
}

func (s *auditoriaService) Verificar(ctx context.Context, id uuid.UUID) (*dto.VerificacionResponse, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.Precondicion("evento de auditoría no encontrado")
	}
	return &dto.VerificacionResponse{EventoID: id.String(), Integro: e.Verificar()}, nil
}

func eventoToResponse(e *model.EventoAuditoria) dto.EventoAuditoriaResponse {
	resp := dto.EventoAuditoriaResponse{
		ID:        e.ID.String(),
		Entidad:   e.Entidad,
		EntidadID: e.EntidadID.String(),
		Evento:    e.Evento,
		Snapshot:  json.RawMessage(e.Snapshot),
		Motivo:    e.Motivo,
		Digest:    e.Digest,
		CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
	}
	if e.UsuarioID != nil {
		s := e.UsuarioID.String()
		resp.UsuarioID = &s
	}
	return resp
}
