package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"furrchum-vet/internal/domain/records"
)

type recordRepo struct {
	mu   sync.RWMutex
	byID map[string]records.PetRecord
}

func NewRecordRepo() records.Repository {
	return &recordRepo{
		byID: make(map[string]records.PetRecord),
	}
}

func (r *recordRepo) Create(ctx context.Context, rec records.PetRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return errors.New("record id required")
	}
	if _, exists := r.byID[rec.ID]; exists {
		return errors.New("record already exists")
	}

	r.byID[rec.ID] = rec
	return nil
}

func (r *recordRepo) GetByID(ctx context.Context, id string) (records.PetRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return records.PetRecord{}, records.ErrNotFound
	}
	return rec, nil
}

func (r *recordRepo) ListByPet(ctx context.Context, petID string, filter records.ListFilter) ([]records.PetRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	out := make([]records.PetRecord, 0)

	for _, rec := range r.byID {
		if rec.PetID != petID {
			continue
		}
		if !filter.IncludeVoided && rec.Status == records.StatusVoided {
			continue
		}

		if len(filter.Kinds) > 0 {
			ok := false
			for _, k := range filter.Kinds {
				if rec.Kind == k {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}

		if filter.From != nil && rec.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.OccurredAt.After(*filter.To) {
			continue
		}

		if q := strings.TrimSpace(filter.Query); q != "" {
			hay := strings.ToLower(rec.Title + " " + rec.Notes)
			if !strings.Contains(hay, strings.ToLower(q)) {
				continue
			}
		}

		out = append(out, rec)
	}

	// Más reciente primero
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *recordRepo) Void(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return records.ErrNotFound
	}
	rec.Status = records.StatusVoided
	r.byID[id] = rec
	return nil
}
