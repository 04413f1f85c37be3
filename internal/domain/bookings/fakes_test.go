package bookings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"furrchum-vet/internal/domain/pets"
	"furrchum-vet/internal/ports/auth"
)

type ctxUserKey struct{}

func withUser(userID string) context.Context {
	return context.WithValue(context.Background(), ctxUserKey{}, userID)
}

type testSessions struct{}

func (testSessions) CurrentSession(ctx context.Context) (auth.Claims, bool) {
	uid, _ := ctx.Value(ctxUserKey{}).(string)
	if uid == "" {
		return auth.Claims{}, false
	}
	return auth.Claims{UserID: uid}, true
}

type testPets map[string]string // petID -> owner

func (p testPets) OwnerOf(ctx context.Context, petID string) (string, error) {
	owner, ok := p[petID]
	if !ok {
		return "", pets.ErrNotFound
	}
	return owner, nil
}

type testDirectory struct {
	providers map[string]Provider
	catalog   []Slot
}

func (d *testDirectory) Lookup(ctx context.Context, id string) (Provider, error) {
	p, ok := d.providers[id]
	if !ok {
		return Provider{}, ErrRecordNotFound
	}
	return p, nil
}

func (d *testDirectory) Catalog(ctx context.Context, id string) ([]Slot, error) {
	return append([]Slot(nil), d.catalog...), nil
}

func (d *testDirectory) DefaultProviderID() string { return "V1" }

// testRepo cuenta llamadas para poder afirmar que la validación ocurre antes del storage.
type testRepo struct {
	mu    sync.Mutex
	byID  map[string]Booking
	calls int

	failInsert     error
	failReschedule error
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Booking{}}
}

func (r *testRepo) heldLocked(providerID string, s Slot, ignoreID string) bool {
	for _, b := range r.byID {
		if b.ID != ignoreID && b.ProviderID == providerID && b.HoldsSlot() && b.Slot == s {
			return true
		}
	}
	return false
}

func (r *testRepo) Insert(ctx context.Context, b Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failInsert != nil {
		return r.failInsert
	}
	if r.heldLocked(b.ProviderID, b.Slot, "") {
		return ErrSlotTaken
	}
	r.byID[b.ID] = b
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	b, ok := r.byID[id]
	if !ok {
		return Booking{}, ErrRecordNotFound
	}
	return b, nil
}

func (r *testRepo) ListByOwner(ctx context.Context, owner string, f ListFilter) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := make([]Booking, 0)
	for _, b := range r.byID {
		if b.OwnerUserID != owner {
			continue
		}
		if len(f.Statuses) > 0 {
			match := false
			for _, st := range f.Statuses {
				if b.Status == st {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Less(out[j].Slot) })
	return out, nil
}

func (r *testRepo) ListHeldByProvider(ctx context.Context, providerID string) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := make([]Booking, 0)
	for _, b := range r.byID {
		if b.ProviderID == providerID && b.HoldsSlot() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *testRepo) Transition(ctx context.Context, id string, from, to Status, at time.Time) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	b, ok := r.byID[id]
	if !ok {
		return Booking{}, ErrRecordNotFound
	}
	if b.Status != from {
		return Booking{}, ErrStaleState
	}
	b = b.Transitioned(to, at)
	r.byID[id] = b
	return b, nil
}

func (r *testRepo) Reschedule(ctx context.Context, oldID string, next Booking, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.failReschedule != nil {
		return r.failReschedule
	}
	old, ok := r.byID[oldID]
	if !ok {
		return ErrRecordNotFound
	}
	if old.Status != StatusUpcoming {
		return ErrStaleState
	}
	if r.heldLocked(next.ProviderID, next.Slot, oldID) {
		return ErrSlotTaken
	}
	r.byID[oldID] = old.Transitioned(StatusCancelled, at)
	r.byID[next.ID] = next
	return nil
}

var errBackendDown = errors.New("connection refused")
