package plansfeatures

import (
	"context"
	"errors"
	"strings"

	"furrchum-vet/internal/ports/capabilities"
)

// Resolver decide si un usuario tiene una feature del plan (p.ej. videoconsultas).
type Resolver struct {
	client   *Client
	allowAll bool
}

var _ capabilities.CapabilitiesResolver = (*Resolver)(nil)

// NewResolver crea un resolver. Con allowAll todo devuelve true (modo dev).
func NewResolver(client *Client, allowAll bool) *Resolver {
	return &Resolver{
		client:   client,
		allowAll: allowAll,
	}
}

func (r *Resolver) HasFeature(ctx context.Context, in capabilities.CapabilityCheck) (bool, error) {
	feature := strings.TrimSpace(in.Feature)
	if feature == "" {
		return false, errors.New("feature required")
	}

	if r.allowAll {
		return true, nil
	}

	if r.client == nil || !r.client.IsConfigured() {
		// Preferimos fallar explícito en vez de permitir sin control.
		return false, ErrPlansNotConfigured
	}

	resp, err := r.client.GetCapabilities(ctx, in.UserID)
	if err != nil {
		return false, err
	}
	return resp.Capabilities[feature], nil
}
