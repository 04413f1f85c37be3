package postgres

import (
	"errors"

	"furrchum-vet/internal/domain/bookings"

	"github.com/jackc/pgx/v5/pgconn"
)

const sqlStateUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}

// storageErr envuelve fallas del driver con el SQLSTATE si lo hay.
func storageErr(op string, err error) error {
	code := ""
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code = pgErr.Code
	}
	return &bookings.StorageError{Op: op, Code: code, Err: err}
}
