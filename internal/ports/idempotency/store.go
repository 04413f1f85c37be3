package idempotency

import (
	"context"
	"time"
)

// Record es la respuesta guardada para reenviar en reintentos.
type Record struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`

	// BodyHash es el sha256 del request original; otro payload con la misma key no se reenvía.
	BodyHash string `json:"body_hash"`
}

// Store guarda respuestas por Idempotency-Key.
// Claim reserva la key (false si otro request ya la tomó).
type Store interface {
	Load(ctx context.Context, key string) (Record, bool, error)
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}
