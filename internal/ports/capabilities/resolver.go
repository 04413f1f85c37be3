package capabilities

import "context"

// Features conocidas por el servicio.
const (
	FeatureVideoConsultations = "consultations:video"
)

type CapabilityCheck struct {
	UserID  string
	Feature string
}

type CapabilitiesResolver interface {
	HasFeature(ctx context.Context, in CapabilityCheck) (bool, error)
}
