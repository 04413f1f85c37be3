package records

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound lo devuelven los adapters cuando el registro no existe.
var ErrNotFound = errors.New("record not found")

type Repository interface {
	Create(ctx context.Context, rec PetRecord) error
	GetByID(ctx context.Context, id string) (PetRecord, error)
	// ListByPet ordena por occurred_at desc.
	ListByPet(ctx context.Context, petID string, filter ListFilter) ([]PetRecord, error)
	Void(ctx context.Context, id string) error
}

type ListFilter struct {
	Kinds         []Kind
	From          *time.Time
	To            *time.Time
	Query         string
	IncludeVoided bool
	Limit         int
}
