package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"registra.org/internal/status"
)

const statusColumns = `id, sequence, name, description, registered_by, registered_at, modified_by, modified_at`

func (s *Store) StatusBySequence(ctx context.Context, seq status.Sequence) (status.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM statuses WHERE sequence = $1`, int(seq))
	return scanStatus(row)
}

func (s *Store) FindStatus(ctx context.Context, id string) (status.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM statuses WHERE id = $1`, id)
	return scanStatus(row)
}

func (s *Store) ListStatuses(ctx context.Context) ([]status.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+statusColumns+` FROM statuses ORDER BY sequence`)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	var out []status.Record
	for rows.Next() {
		rec, err := scanStatusRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatusRow(sc rowScanner) (status.Record, error) {
	var (
		rec         status.Record
		seq         int
		description sql.NullString
		modBy       sql.NullString
		modAt       sql.NullTime
	)
	err := sc.Scan(&rec.ID, &seq, &rec.Name, &description,
		&rec.RegisteredBy, &rec.RegisteredAt, &modBy, &modAt)
	if err != nil {
		return status.Record{}, err
	}
	rec.Sequence = status.Sequence(seq)
	rec.Description = description.String
	applyNullStamps(modBy, modAt, &rec.Fields)
	return rec, nil
}

func scanStatus(row *sql.Row) (status.Record, error) {
	rec, err := scanStatusRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return status.Record{}, status.ErrNotFound
	}
	if err != nil {
		return status.Record{}, fmt.Errorf("scan status: %w", err)
	}
	return rec, nil
}
