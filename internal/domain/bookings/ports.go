package bookings

import "context"

// PetOwners resuelve el dueño de una mascota.
// Debe devolver pets.ErrNotFound si la mascota no existe.
type PetOwners interface {
	OwnerOf(ctx context.Context, petID string) (string, error)
}

type Provider struct {
	ID   string
	Name string
}

// ProviderDirectory expone los veterinarios y su catálogo de slots.
type ProviderDirectory interface {
	// Lookup devuelve ErrRecordNotFound si el proveedor no existe.
	Lookup(ctx context.Context, providerID string) (Provider, error)
	Catalog(ctx context.Context, providerID string) ([]Slot, error)
	DefaultProviderID() string
}
