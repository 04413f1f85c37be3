package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"furrchum-vet/internal/domain/bookings"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "owner_user_id", "pet_id",
	"provider_id", "provider_name",
	"kind", "category",
	"slot_date", "slot_time",
	"status", "notes", "room_url", "rescheduled_from",
	"created_at", "updated_at", "cancelled_at", "completed_at",
}

var created = time.Date(2023, 11, 10, 8, 0, 0, 0, time.UTC)

func bookingRow(id, status string, cancelledAt driver.Value) []driver.Value {
	return []driver.Value{
		id, "owner-1", "P1",
		"V1", "Dr. Sarah Johnson",
		"appointment", "check-up",
		time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC), "09:00",
		status, "", "", "",
		created, created, cancelledAt, nil,
	}
}

func sample() bookings.Booking {
	return bookings.Booking{
		ID:          "b-1",
		OwnerUserID: "owner-1",
		PetID:       "P1",
		ProviderID:  "V1",
		Kind:        bookings.KindAppointment,
		Category:    bookings.CategoryCheckUp,
		Slot:        bookings.Slot{Date: "2023-11-15", Time: "09:00"},
		Status:      bookings.StatusUpcoming,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func newMock(t *testing.T) (*BookingsRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBookingsRepo(db), mock
}

func TestBookingsRepo_InsertMapsUniqueViolation(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_provider_slot_uq"})

	err := repo.Insert(context.Background(), sample())
	assert.ErrorIs(t, err, bookings.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingsRepo_InsertWrapsOtherFailures(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&pgconn.PgError{Code: "57P01", Message: "terminating connection"})

	err := repo.Insert(context.Background(), sample())
	var se *bookings.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "57P01", se.Code)
	assert.Equal(t, "storage", bookings.ErrorKind(err))
}

func TestBookingsRepo_GetReadsLegacyScheduledStatus(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\$1").
		WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(bookingRow("b-1", "scheduled", nil)...))

	b, err := repo.GetByID(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusUpcoming, b.Status)
	assert.Equal(t, bookings.Slot{Date: "2023-11-15", Time: "09:00"}, b.Slot)

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, bookings.ErrRecordNotFound)
}

func TestBookingsRepo_TransitionDistinguishesMissingFromStale(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery("UPDATE bookings").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("b-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.Transition(ctx, "b-1", bookings.StatusUpcoming, bookings.StatusCancelled, created)
	assert.ErrorIs(t, err, bookings.ErrStaleState)

	mock.ExpectQuery("UPDATE bookings").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = repo.Transition(ctx, "nope", bookings.StatusUpcoming, bookings.StatusCancelled, created)
	assert.ErrorIs(t, err, bookings.ErrRecordNotFound)

	mock.ExpectQuery("UPDATE bookings").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(bookingRow("b-2", "cancelled", created)...))

	b, err := repo.Transition(ctx, "b-2", bookings.StatusUpcoming, bookings.StatusCancelled, created)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingsRepo_RescheduleRollsBackOnConflict(t *testing.T) {
	repo, mock := newMock(t)

	next := sample()
	next.ID = "b-2"
	next.Slot = bookings.Slot{Date: "2023-11-15", Time: "10:00"}
	next.RescheduledFrom = "b-1"

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE bookings").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(bookingRow("b-1", "cancelled", created)...))
	mock.ExpectExec("INSERT INTO bookings").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Reschedule(context.Background(), "b-1", next, created)
	assert.ErrorIs(t, err, bookings.ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingsRepo_RescheduleCommits(t *testing.T) {
	repo, mock := newMock(t)

	next := sample()
	next.ID = "b-2"
	next.Slot = bookings.Slot{Date: "2023-11-16", Time: "14:00"}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE bookings").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(bookingRow("b-1", "cancelled", created)...))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reschedule(context.Background(), "b-1", next, created))
	assert.NoError(t, mock.ExpectationsWereMet())
}
