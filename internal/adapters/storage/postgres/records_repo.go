package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"furrchum-vet/internal/domain/records"
)

type RecordsRepo struct {
	db *sql.DB
}

func NewRecordsRepo(db *sql.DB) *RecordsRepo {
	return &RecordsRepo{db: db}
}

const recordColumns = `
	id, pet_id,
	kind, occurred_at, recorded_at,
	title, notes, vet_name, next_due,
	recorded_by, status`

func (r *RecordsRepo) Create(ctx context.Context, rec records.PetRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pet_records (`+recordColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		rec.ID,
		rec.PetID,
		string(rec.Kind),
		rec.OccurredAt,
		rec.RecordedAt,
		rec.Title,
		rec.Notes,
		rec.VetName,
		toNullTime(rec.NextDue),
		rec.RecordedBy,
		string(rec.Status),
	)
	return err
}

func (r *RecordsRepo) GetByID(ctx context.Context, id string) (records.PetRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return records.PetRecord{}, records.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM pet_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return records.PetRecord{}, records.ErrNotFound
		}
		return records.PetRecord{}, err
	}
	return rec, nil
}

func (r *RecordsRepo) ListByPet(ctx context.Context, petID string, filter records.ListFilter) ([]records.PetRecord, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + recordColumns + ` FROM pet_records WHERE pet_id = $1`)

	args := []any{petID}
	argN := 2

	if !filter.IncludeVoided {
		sb.WriteString(fmt.Sprintf(" AND status = $%d", argN))
		args = append(args, string(records.StatusActive))
		argN++
	}

	if len(filter.Kinds) > 0 {
		placeholders := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argN))
			args = append(args, string(k))
			argN++
		}
		sb.WriteString(" AND kind IN (" + strings.Join(placeholders, ",") + ")")
	}

	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND occurred_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		sb.WriteString(fmt.Sprintf(" AND (title ILIKE $%d OR notes ILIKE $%d)", argN, argN))
		args = append(args, "%"+q+"%")
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	sb.WriteString(" ORDER BY occurred_at DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]records.PetRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (r *RecordsRepo) Void(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pet_records SET status = $2 WHERE id = $1`, id, string(records.StatusVoided))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

func scanRecord(s scanner) (records.PetRecord, error) {
	var rec records.PetRecord
	var kind, status string
	var nextDue sql.NullTime
	if err := s.Scan(
		&rec.ID,
		&rec.PetID,
		&kind,
		&rec.OccurredAt,
		&rec.RecordedAt,
		&rec.Title,
		&rec.Notes,
		&rec.VetName,
		&nextDue,
		&rec.RecordedBy,
		&status,
	); err != nil {
		return records.PetRecord{}, err
	}
	rec.Kind = records.Kind(kind)
	rec.Status = records.Status(status)
	rec.NextDue = fromNullTime(nextDue)
	return rec, nil
}
