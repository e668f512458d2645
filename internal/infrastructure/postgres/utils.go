package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/mantenimiento-api/internal/domain"
)

// Códigos SQLSTATE usados por los adaptadores.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	if code := pgCode(err); code != "" {
		return code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// mapTxError traduce errores de concurrencia y de integridad a la taxonomía de dominio.
func mapTxError(err error) error {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	case codeCheckViolation:
		// CHECK (reserved <= quantity) en stock_lines: última barrera si una regla se saltara.
		return fmt.Errorf("%w: %v", domain.ErrInsufficientStock, err)
	}
	return err
}
