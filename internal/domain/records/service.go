package records

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
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
	Kind       Kind
	OccurredAt time.Time
	Title      string
	Notes      string
	VetName    string
	NextDue    *time.Time
}

func (s *Service) Create(ctx context.Context, petID, recordedBy string, in CreateInput) (PetRecord, error) {
	if strings.TrimSpace(petID) == "" || strings.TrimSpace(recordedBy) == "" {
		return PetRecord{}, ErrInvalidInput
	}
	if !in.Kind.Valid() {
		return PetRecord{}, ErrInvalidInput
	}
	if in.OccurredAt.IsZero() || strings.TrimSpace(in.Title) == "" {
		return PetRecord{}, ErrInvalidInput
	}
	if in.NextDue != nil {
		// Solo las vacunas tienen refuerzo, y siempre es posterior a la aplicación.
		if in.Kind != KindVaccination || !in.NextDue.After(in.OccurredAt) {
			return PetRecord{}, ErrInvalidInput
		}
	}

	rec := PetRecord{
		ID:         uuid.NewString(),
		PetID:      petID,
		Kind:       in.Kind,
		OccurredAt: in.OccurredAt,
		RecordedAt: s.now(),
		Title:      strings.TrimSpace(in.Title),
		Notes:      strings.TrimSpace(in.Notes),
		VetName:    strings.TrimSpace(in.VetName),
		NextDue:    in.NextDue,
		RecordedBy: recordedBy,
		Status:     StatusActive,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return PetRecord{}, err
	}
	return rec, nil
}

func (s *Service) ListByPet(ctx context.Context, petID string, filter ListFilter) ([]PetRecord, error) {
	return s.repo.ListByPet(ctx, petID, filter)
}

// Void anula un registro de la mascota (no se borra). Repetirlo no es error.
func (s *Service) Void(ctx context.Context, petID, id string) (PetRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return PetRecord{}, ErrNotFound
	}

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return PetRecord{}, err
	}
	if rec.PetID != petID {
		return PetRecord{}, ErrNotFound
	}
	if rec.Status == StatusVoided {
		return rec, nil
	}

	if err := s.repo.Void(ctx, id); err != nil {
		return PetRecord{}, err
	}
	rec.Status = StatusVoided
	return rec, nil
}

// DueVaccinations calcula los recordatorios "next due": por mascota y vacuna
// (título sin distinguir mayúsculas) toma la aplicación más reciente y la
// incluye si su refuerzo cae antes de now+within.
func (s *Service) DueVaccinations(ctx context.Context, petIDs []string, within time.Duration) ([]Reminder, error) {
	now := s.now()
	limit := now.Add(within)

	out := make([]Reminder, 0)
	for _, petID := range petIDs {
		items, err := s.repo.ListByPet(ctx, petID, ListFilter{Kinds: []Kind{KindVaccination}, Limit: 200})
		if err != nil {
			return nil, err
		}

		latest := make(map[string]PetRecord)
		for _, rec := range items {
			if rec.Status != StatusActive {
				continue
			}
			key := strings.ToLower(rec.Title)
			if cur, ok := latest[key]; !ok || rec.OccurredAt.After(cur.OccurredAt) {
				latest[key] = rec
			}
		}

		for _, rec := range latest {
			if rec.NextDue == nil || rec.NextDue.After(limit) {
				continue
			}
			out = append(out, Reminder{
				PetID:    rec.PetID,
				RecordID: rec.ID,
				Title:    rec.Title,
				DueAt:    *rec.NextDue,
				Overdue:  rec.NextDue.Before(now),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].RecordID < out[j].RecordID
	})
	return out, nil
}
