// Package pg is the Postgres persistence layer, on database/sql over the
// pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"registra.org/internal/audit"
	"registra.org/internal/registry"
)

type Store struct {
	db *sql.DB
}

// Open connects, tunes the pool and pings with a short deadline.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle, for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping serves the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// maybePgError maps driver error codes onto the domain sentinels: unique
// violations become ErrConflict, foreign key violations ErrNotFound.
func maybePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("%w: %s", registry.ErrConflict, pgErr.ConstraintName)
	case "23503":
		return fmt.Errorf("%w: %s", registry.ErrNotFound, pgErr.ConstraintName)
	default:
		return err
	}
}

func joinSet(set []string) string {
	return strings.Join(set, ", ")
}

func joinAnd(conds []string) string {
	return strings.Join(conds, " AND ")
}

// execExpectingRow runs an UPDATE that must touch exactly one row; zero rows
// means the id does not exist.
func (s *Store) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return maybePgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return registry.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// applyNullStamps copies the nullable modification columns into the entity.
// Creation stamps scan directly; only modified_by/modified_at can be NULL.
func applyNullStamps(modBy sql.NullString, modAt sql.NullTime, f *audit.Fields) {
	if modBy.Valid {
		v := modBy.String
		f.ModifiedBy = &v
	}
	if modAt.Valid {
		v := modAt.Time
		f.ModifiedAt = &v
	}
}
