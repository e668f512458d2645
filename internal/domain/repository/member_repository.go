package repository

import "context"

// MemberRepository consulta de solo lectura al directorio de miembros de la organización.
type MemberRepository interface {
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
	// FirstWithRole devuelve el miembro más antiguo con el rol (empate por user_id), o "" si no hay.
	FirstWithRole(ctx context.Context, orgID, roleID string) (string, error)
}
