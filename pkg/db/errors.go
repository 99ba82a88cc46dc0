package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation (Postgres or SQLite). When constraintName is provided,
// the helper also requires the constraint name to appear in the error.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	unique := false
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		unique = pgErr.Code == pgUniqueViolation
		if unique && constraintName != "" {
			return pgErr.ConstraintName == constraintName || strings.Contains(msg, constraintName)
		}
	}
	if !unique {
		unique = strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
	}
	if !unique {
		return false
	}
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return true
}
