package dto

import "encoding/json"

type EventoAuditoriaResponse struct {
	ID        string          `json:"id"`
	Entidad   string          `json:"entidad"`
	EntidadID string          `json:"entidad_id"`
	Evento    string          `json:"evento"`
	Snapshot  json.RawMessage `json:"snapshot"`
	UsuarioID *string         `json:"usuario_id,omitempty"`
	Motivo    *string         `json:"motivo,omitempty"`
	Digest    string          `json:"digest"`
	CreatedAt string          `json:"created_at"`
}

type AuditoriaFilter struct {
	Entidad   string `form:"entidad"`
	EntidadID string `form:"entidad_id"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

type VerificacionResponse struct {
	EventoID string `json:"evento_id"`
	Integro  bool   `json:"integro"`
}
