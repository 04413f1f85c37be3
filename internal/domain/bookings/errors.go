package bookings

import (
	"context"
	"errors"
	"fmt"
)

// Errores que devuelve el Manager. Todos se comparan con errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("slot not available")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// StorageError es una falla del backend de persistencia (reintentable).
// Code lleva el código del proveedor (SQLSTATE en Postgres) si existe.
type StorageError struct {
	Op   string
	Code string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storage error: %s (code=%s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageError(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return se
	}
	code := ""
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = "timeout"
	case errors.Is(err, context.Canceled):
		code = "canceled"
	}
	return &StorageError{Op: op, Code: code, Err: err}
}

// ErrorKind clasifica un error para métricas y mapeo HTTP.
func ErrorKind(err error) string {
	var se *StorageError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.As(err, &se):
		return "storage"
	default:
		return "internal"
	}
}
