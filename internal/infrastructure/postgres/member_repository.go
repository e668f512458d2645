package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/mantenimiento-api/internal/domain/repository"
)

var _ repository.MemberRepository = (*MemberRepo)(nil)

// MemberRepo lectura de org_members (lo mantiene el directorio de usuarios).
type MemberRepo struct {
	q Querier
}

// NewMemberRepository construye el adaptador.
func NewMemberRepository(q Querier) *MemberRepo {
	return &MemberRepo{q: q}
}

// IsMember indica si el usuario pertenece a la organización.
func (r *MemberRepo) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2)`, orgID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}
	return ok, nil
}

// FirstWithRole miembro más antiguo con el rol; empate por user_id. "" si nadie lo tiene.
func (r *MemberRepo) FirstWithRole(ctx context.Context, orgID, roleID string) (string, error) {
	query := `
		SELECT user_id FROM org_members
		WHERE org_id = $1 AND role_id = $2
		ORDER BY created_at, user_id
		LIMIT 1`
	var userID string
	err := r.q.QueryRow(ctx, query, orgID, roleID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("first with role: %w", err)
	}
	return userID, nil
}
