package bookings

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var (
	slot0900 = Slot{Date: "2023-11-15", Time: "09:00"}
	slot1000 = Slot{Date: "2023-11-15", Time: "10:00"}
	slot1400 = Slot{Date: "2023-11-16", Time: "14:00"}
)

type fixture struct {
	mgr  *Manager
	repo *testRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	repo := newTestRepo()
	rooms, err := NewURLRoomIssuer("https://meet.furrchum.test")
	if err != nil {
		t.Fatalf("NewURLRoomIssuer error: %v", err)
	}

	mgr := NewManager(Deps{
		Repo: repo,
		Pets: testPets{"P1": "owner-1", "P2": "owner-2", "P3": "owner-1"},
		Providers: &testDirectory{
			providers: map[string]Provider{
				"V1": {ID: "V1", Name: "Dr. Sarah Johnson"},
				"V2": {ID: "V2", Name: "Dr. Michael Chen"},
			},
			catalog: []Slot{slot1400, slot1000, slot0900},
		},
		Rooms:    rooms,
		Sessions: testSessions{},
	})
	mgr.now = func() time.Time { return time.Date(2023, 11, 10, 8, 0, 0, 0, time.UTC) }

	return fixture{mgr: mgr, repo: repo}
}

func checkUp(petID string, s Slot) BookInput {
	return BookInput{PetID: petID, ProviderID: "V1", Date: s.Date, Time: s.Time, Category: CategoryCheckUp}
}

func TestManager_Book_SecondBookingOnSameSlotConflicts(t *testing.T) {
	f := newFixture(t)

	b, err := f.mgr.Book(withUser("owner-1"), checkUp("P1", slot0900))
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if b.Status != StatusUpcoming {
		t.Fatalf("expected upcoming, got %q", b.Status)
	}
	if b.ProviderName != "Dr. Sarah Johnson" || b.Kind != KindAppointment || b.RoomURL != "" {
		t.Fatalf("unexpected booking: %#v", b)
	}

	_, err = f.mgr.Book(withUser("owner-2"), checkUp("P2", slot0900))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestManager_Book_EmptyDateFailsBeforePersistence(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.Book(withUser("owner-1"), BookInput{PetID: "P1", ProviderID: "V1", Time: "09:00", Category: CategoryCheckUp})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if f.repo.calls != 0 {
		t.Fatalf("expected no repository calls, got %d", f.repo.calls)
	}
}

func TestManager_Book_ValidationCases(t *testing.T) {
	cases := []struct {
		name string
		in   BookInput
		want error
	}{
		{"missing time", BookInput{PetID: "P1", Date: "2023-11-15", Category: CategoryCheckUp}, ErrValidation},
		{"malformed date", BookInput{PetID: "P1", Date: "15/11/2023", Time: "09:00", Category: CategoryCheckUp}, ErrValidation},
		{"missing category", BookInput{PetID: "P1", Date: "2023-11-15", Time: "09:00"}, ErrValidation},
		{"category of other kind", BookInput{PetID: "P1", Date: "2023-11-15", Time: "09:00", Category: CategoryBehavior}, ErrValidation},
		{"consultation without provider", BookInput{PetID: "P1", Kind: KindConsultation, Date: "2023-11-15", Time: "09:00", Category: CategoryGeneral}, ErrValidation},
		{"slot not offered", BookInput{PetID: "P1", ProviderID: "V1", Date: "2023-11-15", Time: "18:00", Category: CategoryCheckUp}, ErrValidation},
		{"unknown pet", BookInput{PetID: "nope", ProviderID: "V1", Date: "2023-11-15", Time: "09:00", Category: CategoryCheckUp}, ErrNotFound},
		{"foreign pet", BookInput{PetID: "P2", ProviderID: "V1", Date: "2023-11-15", Time: "09:00", Category: CategoryCheckUp}, ErrForbidden},
		{"unknown provider", BookInput{PetID: "P1", ProviderID: "V9", Date: "2023-11-15", Time: "09:00", Category: CategoryCheckUp}, ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if _, err := f.mgr.Book(withUser("owner-1"), tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestManager_RequiresSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.mgr.Book(ctx, checkUp("P1", slot0900)); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Book: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.mgr.Cancel(ctx, "x"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Cancel: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.mgr.Reschedule(ctx, "x", "2023-11-15", "10:00"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Reschedule: expected ErrUnauthenticated, got %v", err)
	}
	if _, _, err := f.mgr.Availability(ctx, "V1"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("Availability: expected ErrUnauthenticated, got %v", err)
	}
}

func TestManager_Book_DefaultsAppointmentProvider(t *testing.T) {
	f := newFixture(t)

	b, err := f.mgr.Book(withUser("owner-1"), BookInput{PetID: "P1", Date: "2023-11-15", Time: "09:00", Category: "Vaccination"})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if b.ProviderID != "V1" || b.Category != CategoryVaccination {
		t.Fatalf("expected default provider V1 and normalized category, got %q/%q", b.ProviderID, b.Category)
	}
}

func TestManager_Book_ConsultationGetsRoomURL(t *testing.T) {
	f := newFixture(t)

	b, err := f.mgr.Book(withUser("owner-1"), BookInput{
		PetID: "P1", ProviderID: "V2", Kind: KindConsultation,
		Date: "2023-11-15", Time: "09:00", Category: CategoryFollowUp,
	})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if !strings.HasPrefix(b.RoomURL, "https://meet.furrchum.test/") {
		t.Fatalf("unexpected room url %q", b.RoomURL)
	}

	// Otro proveedor: el mismo slot sigue libre para V1.
	if _, err := f.mgr.Book(withUser("owner-1"), checkUp("P3", slot0900)); err != nil {
		t.Fatalf("expected slot free for another provider, got %v", err)
	}
}

func TestManager_Book_RaceAtWriteTimeIsConflict(t *testing.T) {
	f := newFixture(t)
	f.repo.failInsert = ErrSlotTaken

	if _, err := f.mgr.Book(withUser("owner-1"), checkUp("P1", slot0900)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestManager_Book_StorageFailureIsTyped(t *testing.T) {
	f := newFixture(t)
	f.repo.failInsert = errBackendDown

	_, err := f.mgr.Book(withUser("owner-1"), checkUp("P1", slot0900))
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if !errors.Is(err, errBackendDown) || se.Op != "insert" {
		t.Fatalf("unexpected storage error: %#v", se)
	}
	if ErrorKind(err) != "storage" {
		t.Fatalf("expected storage kind, got %q", ErrorKind(err))
	}
}

func TestManager_Cancel_FreesSlotAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := withUser("owner-1")

	b, err := f.mgr.Book(ctx, checkUp("P1", slot0900))
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	cancelled, err := f.mgr.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if cancelled.Status != StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled with timestamp, got %#v", cancelled)
	}

	again, err := f.mgr.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("second Cancel error: %v", err)
	}
	if again.Status != StatusCancelled {
		t.Fatalf("expected status to remain cancelled, got %q", again.Status)
	}

	_, slots, err := f.mgr.Availability(ctx, "V1")
	if err != nil {
		t.Fatalf("Availability error: %v", err)
	}
	if len(slots) != 3 || slots[0] != slot0900 {
		t.Fatalf("expected freed slot back in availability, got %v", slots)
	}
}

func TestManager_Cancel_Errors(t *testing.T) {
	f := newFixture(t)

	b, err := f.mgr.Book(withUser("owner-1"), checkUp("P1", slot0900))
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	if _, err := f.mgr.Cancel(withUser("owner-1"), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.mgr.Cancel(withUser("owner-2"), b.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := f.mgr.Complete(context.Background(), b.ID); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if _, err := f.mgr.Cancel(withUser("owner-1"), b.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for completed booking, got %v", err)
	}
}

func TestManager_Complete_OnlyFromUpcoming(t *testing.T) {
	f := newFixture(t)
	ctx := withUser("owner-1")

	b, _ := f.mgr.Book(ctx, checkUp("P1", slot0900))
	if _, err := f.mgr.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if _, err := f.mgr.Complete(context.Background(), b.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	b2, _ := f.mgr.Book(ctx, checkUp("P1", slot1000))
	done, err := f.mgr.Complete(context.Background(), b2.ID)
	if err != nil || done.Status != StatusCompleted || done.CompletedAt == nil {
		t.Fatalf("expected completed booking, got %#v (err=%v)", done, err)
	}

	// Un booking completado sigue ocupando su slot.
	_, slots, _ := f.mgr.Availability(ctx, "V1")
	for _, s := range slots {
		if s == slot1000 {
			t.Fatalf("completed booking must keep its slot")
		}
	}
}

func TestManager_Reschedule_MovesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := withUser("owner-1")

	old, err := f.mgr.Book(ctx, BookInput{
		PetID: "P1", ProviderID: "V1", Kind: KindConsultation,
		Date: slot0900.Date, Time: slot0900.Time, Category: CategoryNutrition, Notes: "diet",
	})
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	next, err := f.mgr.Reschedule(ctx, old.ID, slot1400.Date, slot1400.Time)
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if next.ID == old.ID || next.RescheduledFrom != old.ID || next.Slot != slot1400 {
		t.Fatalf("unexpected rescheduled booking: %#v", next)
	}
	if next.Notes != "diet" || next.Category != CategoryNutrition || next.RoomURL == "" || next.RoomURL == old.RoomURL {
		t.Fatalf("expected carried fields and fresh room, got %#v", next)
	}

	prev, _ := f.mgr.Get(ctx, old.ID)
	if prev.Status != StatusCancelled {
		t.Fatalf("expected old booking cancelled, got %q", prev.Status)
	}

	_, slots, _ := f.mgr.Availability(ctx, "V1")
	if len(slots) != 2 || slots[0] != slot0900 || slots[1] != slot1000 {
		t.Fatalf("expected 09:00 freed and 14:00 held, got %v", slots)
	}
}

func TestManager_Reschedule_FailureLeavesOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := withUser("owner-1")

	old, _ := f.mgr.Book(ctx, checkUp("P1", slot0900))
	if _, err := f.mgr.Book(withUser("owner-2"), checkUp("P2", slot1000)); err != nil {
		t.Fatalf("Book error: %v", err)
	}

	if _, err := f.mgr.Reschedule(ctx, old.ID, slot1000.Date, slot1000.Time); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	f.repo.failReschedule = errBackendDown
	if _, err := f.mgr.Reschedule(ctx, old.ID, slot1400.Date, slot1400.Time); ErrorKind(err) != "storage" {
		t.Fatalf("expected storage error, got %v", err)
	}

	cur, _ := f.mgr.Get(ctx, old.ID)
	if cur.Status != StatusUpcoming || cur.Slot != slot0900 {
		t.Fatalf("expected original booking untouched, got %#v", cur)
	}
	mine, _ := f.mgr.List(ctx, ListFilter{})
	if len(mine) != 1 {
		t.Fatalf("expected no new booking, got %d", len(mine))
	}
}

func TestManager_Reschedule_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := withUser("owner-1")

	b, _ := f.mgr.Book(ctx, checkUp("P1", slot0900))

	if _, err := f.mgr.Reschedule(ctx, b.ID, slot0900.Date, slot0900.Time); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for same slot, got %v", err)
	}
	if _, err := f.mgr.Reschedule(ctx, b.ID, "", "10:00"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty date, got %v", err)
	}
	if _, err := f.mgr.Reschedule(withUser("owner-2"), b.ID, slot1000.Date, slot1000.Time); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	_, _ = f.mgr.Cancel(ctx, b.ID)
	if _, err := f.mgr.Reschedule(ctx, b.ID, slot1000.Date, slot1000.Time); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for cancelled booking, got %v", err)
	}
}

func TestManager_NextUpcoming_SkipsPastAndCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := withUser("owner-1")

	first, _ := f.mgr.Book(ctx, checkUp("P1", slot0900))
	second, _ := f.mgr.Book(ctx, checkUp("P1", slot1000))
	_, _ = f.mgr.Cancel(ctx, first.ID)

	next, ok, err := f.mgr.NextUpcoming(ctx)
	if err != nil || !ok {
		t.Fatalf("expected a next booking (err=%v)", err)
	}
	if next.ID != second.ID {
		t.Fatalf("expected %s, got %s", second.ID, next.ID)
	}

	f.mgr.now = func() time.Time { return time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC) }
	if _, ok, _ := f.mgr.NextUpcoming(ctx); ok {
		t.Fatalf("expected no upcoming booking in the future")
	}
}
