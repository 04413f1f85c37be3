package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"furrchum-vet/internal/domain/bookings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSlot = bookings.Slot{Date: "2023-11-15", Time: "09:00"}

func upcoming(id, provider string, s bookings.Slot) bookings.Booking {
	return bookings.Booking{
		ID:          id,
		OwnerUserID: "owner-" + id,
		ProviderID:  provider,
		Kind:        bookings.KindAppointment,
		Category:    bookings.CategoryCheckUp,
		Slot:        s,
		Status:      bookings.StatusUpcoming,
	}
}

func TestBookingRepo_ConcurrentInsertsHoldSlotOnce(t *testing.T) {
	repo := NewBookingRepo()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Insert(ctx, upcoming(fmt.Sprintf("b-%d", i), "V1", testSlot))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, bookings.ErrSlotTaken)
	}
	assert.Equal(t, 1, ok)

	held, err := repo.ListHeldByProvider(ctx, "V1")
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

func TestBookingRepo_CancelFreesSlot(t *testing.T) {
	repo := NewBookingRepo()
	ctx := context.Background()
	at := time.Date(2023, 11, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx, upcoming("b-1", "V1", testSlot)))
	require.ErrorIs(t, repo.Insert(ctx, upcoming("b-2", "V1", testSlot)), bookings.ErrSlotTaken)

	// Otro proveedor, mismo slot: permitido.
	require.NoError(t, repo.Insert(ctx, upcoming("b-3", "V2", testSlot)))

	b, err := repo.Transition(ctx, "b-1", bookings.StatusUpcoming, bookings.StatusCancelled, at)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)

	_, err = repo.Transition(ctx, "b-1", bookings.StatusUpcoming, bookings.StatusCancelled, at)
	assert.ErrorIs(t, err, bookings.ErrStaleState)

	require.NoError(t, repo.Insert(ctx, upcoming("b-2", "V1", testSlot)))
}

func TestBookingRepo_RescheduleIsAllOrNothing(t *testing.T) {
	repo := NewBookingRepo()
	ctx := context.Background()
	at := time.Date(2023, 11, 10, 8, 0, 0, 0, time.UTC)
	other := bookings.Slot{Date: "2023-11-15", Time: "10:00"}

	require.NoError(t, repo.Insert(ctx, upcoming("old", "V1", testSlot)))
	require.NoError(t, repo.Insert(ctx, upcoming("blocker", "V1", other)))

	next := upcoming("new", "V1", other)
	next.RescheduledFrom = "old"
	require.ErrorIs(t, repo.Reschedule(ctx, "old", next, at), bookings.ErrSlotTaken)

	old, err := repo.GetByID(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusUpcoming, old.Status)
	_, err = repo.GetByID(ctx, "new")
	assert.ErrorIs(t, err, bookings.ErrRecordNotFound)

	_, err = repo.Transition(ctx, "blocker", bookings.StatusUpcoming, bookings.StatusCancelled, at)
	require.NoError(t, err)
	require.NoError(t, repo.Reschedule(ctx, "old", next, at))

	old, _ = repo.GetByID(ctx, "old")
	assert.Equal(t, bookings.StatusCancelled, old.Status)
	held, _ := repo.ListHeldByProvider(ctx, "V1")
	require.Len(t, held, 1)
	assert.Equal(t, "new", held[0].ID)
}
