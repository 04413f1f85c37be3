package pets

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

const (
	maxAgeYears = 50
	maxWeightKg = 200
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name     string
	Species  string
	Breed    string
	AgeYears int
	WeightKg float64
	PhotoURL string
	Notes    string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Pet, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Pet{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Species) == "" {
		return Pet{}, ErrInvalidInput
	}
	if err := validateMeasures(in.AgeYears, in.WeightKg); err != nil {
		return Pet{}, err
	}
	photo, err := normalizePhotoURL(in.PhotoURL)
	if err != nil {
		return Pet{}, err
	}

	now := s.now()
	p := Pet{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(in.Name),
		Species:     normalizeSpecies(in.Species),
		Breed:       strings.TrimSpace(in.Breed),
		AgeYears:    in.AgeYears,
		WeightKg:    in.WeightKg,
		PhotoURL:    photo,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// UpdateProfileInput usa punteros: nil = no tocar.
type UpdateProfileInput struct {
	Name     *string
	Species  *string
	Breed    *string
	AgeYears *int
	WeightKg *float64
	PhotoURL *string
	Notes    *string
}

// UpdateProfile edita el perfil. Solo el dueño puede hacerlo.
func (s *Service) UpdateProfile(ctx context.Context, petID, ownerUserID string, in UpdateProfileInput) (Pet, error) {
	p, err := s.GetOwned(ctx, ownerUserID, petID)
	if err != nil {
		return Pet{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Pet{}, ErrInvalidInput
		}
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Species != nil {
		if strings.TrimSpace(*in.Species) == "" {
			return Pet{}, ErrInvalidInput
		}
		p.Species = normalizeSpecies(*in.Species)
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.AgeYears != nil {
		p.AgeYears = *in.AgeYears
	}
	if in.WeightKg != nil {
		p.WeightKg = *in.WeightKg
	}
	if err := validateMeasures(p.AgeYears, p.WeightKg); err != nil {
		return Pet{}, err
	}
	if in.PhotoURL != nil {
		photo, err := normalizePhotoURL(*in.PhotoURL)
		if err != nil {
			return Pet{}, err
		}
		p.PhotoURL = photo
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}

	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

func validateMeasures(age int, weight float64) error {
	if age < 0 || age > maxAgeYears {
		return ErrInvalidInput
	}
	if weight < 0 || weight > maxWeightKg {
		return ErrInvalidInput
	}
	return nil
}

func normalizeSpecies(s string) Species {
	return Species(strings.ToLower(strings.TrimSpace(s)))
}

// La subida de imágenes no existe: solo guardamos una URL ya hosteada.
func normalizePhotoURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidInput
	}
	return raw, nil
}
