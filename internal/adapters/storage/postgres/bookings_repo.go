package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"furrchum-vet/internal/domain/bookings"
)

// BookingsRepo delega la unicidad del slot al índice parcial
// bookings_provider_slot_uq: una violación 23505 es ErrSlotTaken.
type BookingsRepo struct {
	db *sql.DB
}

var _ bookings.Repository = (*BookingsRepo)(nil)

func NewBookingsRepo(db *sql.DB) *BookingsRepo {
	return &BookingsRepo{db: db}
}

const bookingColumns = `
	id, owner_user_id, pet_id,
	provider_id, provider_name,
	kind, category,
	slot_date, slot_time,
	status, notes, room_url, rescheduled_from,
	created_at, updated_at, cancelled_at, completed_at`

const insertBookingSQL = `
	INSERT INTO bookings (` + bookingColumns + `
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

// El estado legacy "scheduled" cuenta como upcoming.
const transitionSQL = `
	UPDATE bookings
	SET
		status = $3::text,
		updated_at = $4::timestamptz,
		cancelled_at = CASE WHEN $3::text = 'cancelled' THEN $4::timestamptz ELSE cancelled_at END,
		completed_at = CASE WHEN $3::text = 'completed' THEN $4::timestamptz ELSE completed_at END
	WHERE id = $1
		AND (status = $2::text OR ($2::text = 'upcoming' AND status = 'scheduled'))
	RETURNING ` + bookingColumns

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *BookingsRepo) Insert(ctx context.Context, b bookings.Booking) error {
	return insertBooking(ctx, r.db, b)
}

func insertBooking(ctx context.Context, ex execer, b bookings.Booking) error {
	slotDate, err := time.Parse(bookings.DateLayout, b.Slot.Date)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	_, err = ex.ExecContext(ctx, insertBookingSQL,
		b.ID,
		b.OwnerUserID,
		b.PetID,
		b.ProviderID,
		b.ProviderName,
		string(b.Kind),
		string(b.Category),
		slotDate,
		b.Slot.Time,
		string(b.Status),
		b.Notes,
		b.RoomURL,
		b.RescheduledFrom,
		b.CreatedAt,
		b.UpdatedAt,
		toNullTime(b.CancelledAt),
		toNullTime(b.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return bookings.ErrSlotTaken
		}
		return storageErr("insert booking", err)
	}
	return nil
}

func (r *BookingsRepo) GetByID(ctx context.Context, id string) (bookings.Booking, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return bookings.Booking{}, bookings.ErrRecordNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bookings.Booking{}, bookings.ErrRecordNotFound
		}
		return bookings.Booking{}, storageErr("get booking", err)
	}
	return b, nil
}

func (r *BookingsRepo) ListByOwner(ctx context.Context, ownerUserID string, filter bookings.ListFilter) ([]bookings.Booking, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + bookingColumns + ` FROM bookings WHERE owner_user_id = $1`)

	args := []any{ownerUserID}
	argN := 2

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses)+1)
		for _, st := range filter.Statuses {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(st))
			argN++
			if st == bookings.StatusUpcoming {
				placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
				args = append(args, "scheduled")
				argN++
			}
		}
		sb.WriteString(" AND status IN (" + strings.Join(placeholders, ",") + ")")
	}
	if filter.Kind != "" {
		sb.WriteString(fmt.Sprintf(" AND kind = $%d", argN))
		args = append(args, string(filter.Kind))
		argN++
	}
	if filter.PetID != "" {
		sb.WriteString(fmt.Sprintf(" AND pet_id = $%d", argN))
		args = append(args, filter.PetID)
		argN++
	}

	sb.WriteString(" ORDER BY slot_date ASC, slot_time ASC, created_at ASC")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, filter.Limit)
	}

	return r.query(ctx, "list bookings", sb.String(), args...)
}

func (r *BookingsRepo) ListHeldByProvider(ctx context.Context, providerID string) ([]bookings.Booking, error) {
	return r.query(ctx, "list held bookings", `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND status <> 'cancelled'
		ORDER BY slot_date ASC, slot_time ASC
	`, providerID)
}

func (r *BookingsRepo) Transition(ctx context.Context, id string, from, to bookings.Status, at time.Time) (bookings.Booking, error) {
	return transition(ctx, r.db, id, from, to, at)
}

func transition(ctx context.Context, q queryRower, id string, from, to bookings.Status, at time.Time) (bookings.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, transitionSQL, id, string(from), string(to), at))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return bookings.Booking{}, storageErr("transition booking", err)
	}

	// Sin filas: o no existe o el status ya no es from.
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return bookings.Booking{}, storageErr("transition booking", err)
	}
	if !exists {
		return bookings.Booking{}, bookings.ErrRecordNotFound
	}
	return bookings.Booking{}, bookings.ErrStaleState
}

// Reschedule cancela el viejo e inserta el nuevo en una transacción:
// si el insert choca con el índice, el rollback deja el viejo intacto.
func (r *BookingsRepo) Reschedule(ctx context.Context, oldID string, next bookings.Booking, at time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin reschedule", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = transition(ctx, tx, oldID, bookings.StatusUpcoming, bookings.StatusCancelled, at); err != nil {
		return err
	}
	if err = insertBooking(ctx, tx, next); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storageErr("commit reschedule", err)
	}
	return nil
}

func (r *BookingsRepo) query(ctx context.Context, op, q string, args ...any) ([]bookings.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	out := make([]bookings.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return out, nil
}

func scanBooking(s scanner) (bookings.Booking, error) {
	var b bookings.Booking
	var kind, category, status string
	var slotDate time.Time
	var cancelledAt, completedAt sql.NullTime
	if err := s.Scan(
		&b.ID,
		&b.OwnerUserID,
		&b.PetID,
		&b.ProviderID,
		&b.ProviderName,
		&kind,
		&category,
		&slotDate,
		&b.Slot.Time,
		&status,
		&b.Notes,
		&b.RoomURL,
		&b.RescheduledFrom,
		&b.CreatedAt,
		&b.UpdatedAt,
		&cancelledAt,
		&completedAt,
	); err != nil {
		return bookings.Booking{}, err
	}

	st, ok := bookings.ParseStatus(status)
	if !ok {
		return bookings.Booking{}, fmt.Errorf("unknown booking status %q", status)
	}
	b.Kind = bookings.Kind(kind)
	b.Category = bookings.Category(category)
	b.Slot.Date = slotDate.Format(bookings.DateLayout)
	b.Status = st
	b.CancelledAt = fromNullTime(cancelledAt)
	b.CompletedAt = fromNullTime(completedAt)
	return b, nil
}
