package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"furrchum-vet/internal/domain/pets"
	"furrchum-vet/internal/platform/logger"
	"furrchum-vet/internal/ports/auth"

	"github.com/google/uuid"
)

const maxNotesLen = 1000

// Deps agrupa los colaboradores del Manager. Rooms solo se usa en videoconsultas.
type Deps struct {
	Repo      Repository
	Pets      PetOwners
	Providers ProviderDirectory
	Rooms     RoomIssuer
	Sessions  auth.SessionSource
	Log       logger.Logger
	Location  *time.Location
}

// Manager no guarda estado propio: todo vive en el Repository, así que es
// seguro usarlo desde varios requests a la vez.
type Manager struct {
	repo      Repository
	pets      PetOwners
	providers ProviderDirectory
	rooms     RoomIssuer
	sessions  auth.SessionSource
	log       logger.Logger
	loc       *time.Location
	now       func() time.Time
}

func NewManager(d Deps) *Manager {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{
		repo:      d.Repo,
		pets:      d.Pets,
		providers: d.Providers,
		rooms:     d.Rooms,
		sessions:  d.Sessions,
		log:       log.With(map[string]any{"component": "bookings"}),
		loc:       loc,
		now:       time.Now,
	}
}

type BookInput struct {
	PetID      string
	ProviderID string
	Kind       Kind
	Date       string
	Time       string
	Category   Category
	Notes      string
}

// Availability devuelve los slots libres del proveedor (vacío = proveedor por defecto).
func (m *Manager) Availability(ctx context.Context, providerID string) (Provider, []Slot, error) {
	if _, err := m.session(ctx); err != nil {
		return Provider{}, nil, err
	}

	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		providerID = m.providers.DefaultProviderID()
	}
	prov, err := m.lookupProvider(ctx, providerID)
	if err != nil {
		return Provider{}, nil, err
	}

	catalog, err := m.providers.Catalog(ctx, prov.ID)
	if err != nil {
		return Provider{}, nil, storageError("catalog", err)
	}
	held, err := m.repo.ListHeldByProvider(ctx, prov.ID)
	if err != nil {
		return Provider{}, nil, m.storageFailure("list held", err)
	}

	return prov, ProposeSlots(catalog, held), nil
}

// Book valida la selección y persiste un booking nuevo en estado upcoming.
// Todas las validaciones de input ocurren antes de tocar el storage.
func (m *Manager) Book(ctx context.Context, in BookInput) (Booking, error) {
	claims, err := m.session(ctx)
	if err != nil {
		return Booking{}, err
	}

	slot, err := ParseSlot(in.Date, in.Time)
	if err != nil {
		return Booking{}, err
	}

	kind, ok := ParseKind(string(in.Kind))
	if !ok {
		return Booking{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, in.Kind)
	}

	category := Category(strings.ToLower(strings.TrimSpace(string(in.Category))))
	if category == "" {
		return Booking{}, fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !category.ValidFor(kind) {
		return Booking{}, fmt.Errorf("%w: category %q not allowed for %s", ErrValidation, category, kind)
	}

	petID := strings.TrimSpace(in.PetID)
	if petID == "" {
		return Booking{}, fmt.Errorf("%w: pet_id is required", ErrValidation)
	}

	notes := strings.TrimSpace(in.Notes)
	if len(notes) > maxNotesLen {
		return Booking{}, fmt.Errorf("%w: notes too long", ErrValidation)
	}

	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		if kind == KindConsultation {
			return Booking{}, fmt.Errorf("%w: provider_id is required for consultations", ErrValidation)
		}
		providerID = m.providers.DefaultProviderID()
	}

	if err := m.checkPetOwner(ctx, petID, claims.UserID); err != nil {
		return Booking{}, err
	}

	prov, err := m.lookupProvider(ctx, providerID)
	if err != nil {
		return Booking{}, err
	}
	if err := m.checkSlotFree(ctx, prov.ID, slot, ""); err != nil {
		return Booking{}, err
	}

	now := m.now()
	b := Booking{
		ID:           uuid.NewString(),
		OwnerUserID:  claims.UserID,
		PetID:        petID,
		ProviderID:   prov.ID,
		ProviderName: prov.Name,
		Kind:         kind,
		Category:     category,
		Slot:         slot,
		Status:       StatusUpcoming,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if kind == KindConsultation {
		if b.RoomURL, err = m.newRoom(); err != nil {
			return Booking{}, err
		}
	}

	// El repo re-chequea el slot de forma atómica: cierra la carrera entre
	// checkSlotFree y el insert.
	if err := m.repo.Insert(ctx, b); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return Booking{}, fmt.Errorf("%w: %s", ErrConflict, slot)
		}
		return Booking{}, m.storageFailure("insert", err)
	}

	m.log.Info("booking created", map[string]any{
		"booking_id":  b.ID,
		"provider_id": b.ProviderID,
		"kind":        string(b.Kind),
		"slot":        slot.String(),
	})
	return b, nil
}

// Cancel pasa un booking a cancelled. Cancelar uno ya cancelado no es error.
func (m *Manager) Cancel(ctx context.Context, bookingID string) (Booking, error) {
	claims, err := m.session(ctx)
	if err != nil {
		return Booking{}, err
	}

	b, err := m.getOwned(ctx, claims.UserID, bookingID)
	if err != nil {
		return Booking{}, err
	}

	for attempt := 0; ; attempt++ {
		switch b.Status {
		case StatusCancelled:
			return b, nil
		case StatusCompleted:
			return Booking{}, fmt.Errorf("%w: booking already completed", ErrInvalidState)
		}

		updated, err := m.repo.Transition(ctx, b.ID, StatusUpcoming, StatusCancelled, m.now())
		if err == nil {
			m.log.Info("booking cancelled", map[string]any{"booking_id": b.ID})
			return updated, nil
		}
		if !errors.Is(err, ErrStaleState) || attempt > 0 {
			return Booking{}, m.mapRepoError("cancel", err)
		}

		// Otro request cambió el status entre la lectura y el update: releer y decidir.
		if b, err = m.getOwned(ctx, claims.UserID, bookingID); err != nil {
			return Booking{}, err
		}
	}
}

// Reschedule cancela el booking y crea uno nuevo en otro slot como una sola unidad.
func (m *Manager) Reschedule(ctx context.Context, bookingID, date, clock string) (Booking, error) {
	claims, err := m.session(ctx)
	if err != nil {
		return Booking{}, err
	}

	slot, err := ParseSlot(date, clock)
	if err != nil {
		return Booking{}, err
	}

	old, err := m.getOwned(ctx, claims.UserID, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if old.Status != StatusUpcoming {
		return Booking{}, fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidState, old.Status)
	}
	if old.Slot == slot {
		return Booking{}, fmt.Errorf("%w: new slot equals current slot", ErrValidation)
	}

	if err := m.checkSlotFree(ctx, old.ProviderID, slot, old.ID); err != nil {
		return Booking{}, err
	}

	now := m.now()
	next := Booking{
		ID:              uuid.NewString(),
		OwnerUserID:     old.OwnerUserID,
		PetID:           old.PetID,
		ProviderID:      old.ProviderID,
		ProviderName:    old.ProviderName,
		Kind:            old.Kind,
		Category:        old.Category,
		Slot:            slot,
		Status:          StatusUpcoming,
		Notes:           old.Notes,
		RescheduledFrom: old.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if next.Kind == KindConsultation {
		if next.RoomURL, err = m.newRoom(); err != nil {
			return Booking{}, err
		}
	}

	if err := m.repo.Reschedule(ctx, old.ID, next, now); err != nil {
		return Booking{}, m.mapRepoError("reschedule", err)
	}

	m.log.Info("booking rescheduled", map[string]any{
		"booking_id": next.ID,
		"from":       old.ID,
		"slot":       slot.String(),
	})
	return next, nil
}

// Complete es la transición administrativa upcoming -> completed.
// No valida dueño: solo se expone detrás de la admin key.
func (m *Manager) Complete(ctx context.Context, bookingID string) (Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return Booking{}, ErrNotFound
	}

	b, err := m.repo.GetByID(ctx, bookingID)
	if err != nil {
		return Booking{}, m.mapRepoError("get", err)
	}
	switch b.Status {
	case StatusCompleted:
		return b, nil
	case StatusCancelled:
		return Booking{}, fmt.Errorf("%w: booking is cancelled", ErrInvalidState)
	}

	updated, err := m.repo.Transition(ctx, b.ID, StatusUpcoming, StatusCompleted, m.now())
	if err != nil {
		if errors.Is(err, ErrStaleState) {
			return Booking{}, fmt.Errorf("%w: booking changed concurrently", ErrInvalidState)
		}
		return Booking{}, m.mapRepoError("complete", err)
	}
	return updated, nil
}

func (m *Manager) Get(ctx context.Context, bookingID string) (Booking, error) {
	claims, err := m.session(ctx)
	if err != nil {
		return Booking{}, err
	}
	return m.getOwned(ctx, claims.UserID, bookingID)
}

// List devuelve los bookings del usuario en sesión, ordenados por slot.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]Booking, error) {
	claims, err := m.session(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrValidation, filter.Kind)
	}

	items, err := m.repo.ListByOwner(ctx, claims.UserID, filter)
	if err != nil {
		return nil, m.storageFailure("list", err)
	}
	return items, nil
}

// NextUpcoming devuelve el próximo booking upcoming que todavía no empezó.
func (m *Manager) NextUpcoming(ctx context.Context) (Booking, bool, error) {
	items, err := m.List(ctx, ListFilter{Statuses: []Status{StatusUpcoming}})
	if err != nil {
		return Booking{}, false, err
	}

	now := m.now()
	for _, b := range items {
		if !b.Slot.Start(m.loc).Before(now) {
			return b, true, nil
		}
	}
	return Booking{}, false, nil
}

func (m *Manager) session(ctx context.Context) (auth.Claims, error) {
	if m.sessions == nil {
		return auth.Claims{}, ErrUnauthenticated
	}
	c, ok := m.sessions.CurrentSession(ctx)
	if !ok || strings.TrimSpace(c.UserID) == "" {
		return auth.Claims{}, ErrUnauthenticated
	}
	return c, nil
}

func (m *Manager) getOwned(ctx context.Context, userID, bookingID string) (Booking, error) {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return Booking{}, ErrNotFound
	}
	b, err := m.repo.GetByID(ctx, bookingID)
	if err != nil {
		return Booking{}, m.mapRepoError("get", err)
	}
	if b.OwnerUserID != userID {
		return Booking{}, ErrForbidden
	}
	return b, nil
}

func (m *Manager) checkPetOwner(ctx context.Context, petID, userID string) error {
	owner, err := m.pets.OwnerOf(ctx, petID)
	if err != nil {
		if errors.Is(err, pets.ErrNotFound) {
			return fmt.Errorf("%w: pet %s", ErrNotFound, petID)
		}
		return m.storageFailure("pet owner", err)
	}
	if owner != userID {
		return fmt.Errorf("%w: pet belongs to another user", ErrForbidden)
	}
	return nil
}

func (m *Manager) lookupProvider(ctx context.Context, providerID string) (Provider, error) {
	prov, err := m.providers.Lookup(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Provider{}, fmt.Errorf("%w: provider %s", ErrNotFound, providerID)
		}
		return Provider{}, storageError("provider lookup", err)
	}
	return prov, nil
}

// checkSlotFree valida contra el catálogo y contra los bookings vigentes.
// ignoreID excluye al booking que se está reprogramando.
func (m *Manager) checkSlotFree(ctx context.Context, providerID string, slot Slot, ignoreID string) error {
	catalog, err := m.providers.Catalog(ctx, providerID)
	if err != nil {
		return storageError("catalog", err)
	}
	if !containsSlot(catalog, slot) {
		return fmt.Errorf("%w: slot %s is not offered", ErrValidation, slot)
	}

	held, err := m.repo.ListHeldByProvider(ctx, providerID)
	if err != nil {
		return m.storageFailure("list held", err)
	}
	if slotHeld(held, slot, ignoreID) {
		return fmt.Errorf("%w: %s", ErrConflict, slot)
	}
	return nil
}

func (m *Manager) newRoom() (string, error) {
	if m.rooms == nil {
		return "", errors.New("room issuer not configured")
	}
	return m.rooms.NewRoomURL()
}

// mapRepoError traduce los sentinels del repo a la taxonomía del Manager.
func (m *Manager) mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrSlotTaken):
		return ErrConflict
	case errors.Is(err, ErrStaleState):
		return fmt.Errorf("%w: booking changed concurrently", ErrInvalidState)
	default:
		return m.storageFailure(op, err)
	}
}

func (m *Manager) storageFailure(op string, err error) error {
	se := storageError(op, err)
	m.log.Warn("booking storage failure", map[string]any{"op": op, "error": err})
	return se
}
