package model

import "github.com/google/uuid"

// Actor identifies who performs an operation. Either an authenticated user
// or the system itself (batch jobs, migrations). There is no magic
// "system" user id anywhere — use ActorSistema().
type Actor struct {
	usuarioID *uuid.UUID
}

func ActorAutenticado(usuarioID uuid.UUID) Actor {
	id := usuarioID
	return Actor{usuarioID: &id}
}

func ActorSistema() Actor { return Actor{} }

func (a Actor) EsSistema() bool { return a.usuarioID == nil }

// UsuarioID returns the authenticated user id, or nil for the system actor.
func (a Actor) UsuarioID() *uuid.UUID {
	if a.usuarioID == nil {
		return nil
	}
	id := *a.usuarioID
	return &id
}

// Etiqueta is the human-readable form used in descriptions and audit rows.
func (a Actor) Etiqueta() string {
	if a.usuarioID == nil {
		return "sistema"
	}
	return a.usuarioID.String()
}
