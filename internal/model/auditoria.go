package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Eventos de auditoría.
const (
	EventoCreacion  = "creacion"
	EventoAnulacion = "anulacion"
)

// EventoAuditoria is an append-only audit record with a full snapshot of the
// entity at event time. The digest makes historical rows tamper-evident: a
// verifier recomputes it from the stored fields and compares on read. It is
// not a signature — it detects casual mutation, not a hostile DBA.
type EventoAuditoria struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Entidad   string         `gorm:"type:varchar(40);not null;index"`
	EntidadID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Evento    string         `gorm:"type:varchar(20);not null"`
	Snapshot  json.RawMessage `gorm:"type:jsonb;not null"`

	UsuarioID *uuid.UUID `gorm:"type:uuid"`
	IP        *string    `gorm:"type:varchar(45)"`
	UserAgent *string
	Motivo    *string

	Digest    string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (EventoAuditoria) TableName() string { return "eventos_auditoria" }

// digestPayload fixes the canonical serialization the digest covers. Field
// order is the struct order, so the hash is reproducible.
type digestPayload struct {
	Entidad   string          `json:"entidad"`
	EntidadID string          `json:"entidad_id"`
	Evento    string          `json:"evento"`
	Snapshot  json.RawMessage `json:"snapshot"`
	UsuarioID string          `json:"usuario_id"`
	Timestamp string          `json:"timestamp"`
}

// CalcularDigest computes the integrity hash over the event's stored fields.
func (e *EventoAuditoria) CalcularDigest() string {
	usuario := "sistema"
	if e.UsuarioID != nil {
		usuario = e.UsuarioID.String()
	}
	payload := digestPayload{
		Entidad:   e.Entidad,
		EntidadID: e.EntidadID.String(),
		Evento:    e.Evento,
		Snapshot:  json.RawMessage(e.Snapshot),
		UsuarioID: usuario,
		Timestamp: e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Verificar recomputes the digest and reports whether the row is intact.
func (e *EventoAuditoria) Verificar() bool {
	return e.Digest == e.CalcularDigest()
}
