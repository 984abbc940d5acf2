package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// isUniqueViolation — нарушение уникального индекса Postgres (код 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
