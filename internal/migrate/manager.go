// Package migrate applies SQL migration and seed files in lexical order,
// tracking what already ran in bookkeeping tables.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Manager struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

func NewManager(db *sql.DB, migrationsDir, seedsDir string) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("migrate: db is required")
	}
	if migrationsDir == "" {
		return nil, fmt.Errorf("migrate: migrations dir is required")
	}
	return &Manager{db: db, migrationsDir: migrationsDir, seedsDir: seedsDir}, nil
}

func (m *Manager) ensureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_seeds (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure bookkeeping tables: %w", err)
		}
	}
	return nil
}

// collectSQL lists files in dir with the given suffix, sorted by name.
func collectSQL(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func (m *Manager) applied(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`SELECT name FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (m *Manager) execFile(ctx context.Context, dir, name, table string, record bool) error {
	body, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("apply %s: %w", name, err)
	}
	if record {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (name, applied_at) VALUES ($1, $2)`, table),
			name, time.Now().UTC()); err != nil {
			return fmt.Errorf("record %s: %w", name, err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE name = $1`, table), name); err != nil {
			return fmt.Errorf("unrecord %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Up applies pending .up.sql migrations in order.
func (m *Manager) Up(ctx context.Context) (int, error) {
	if err := m.ensureTables(ctx); err != nil {
		return 0, err
	}
	files, err := collectSQL(m.migrationsDir, ".up.sql")
	if err != nil {
		return 0, err
	}
	done, err := m.applied(ctx, "schema_migrations")
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, name := range files {
		if done[name] {
			continue
		}
		if err := m.execFile(ctx, m.migrationsDir, name, "schema_migrations", true); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Down rolls back the most recent applied migration using its .down.sql
// counterpart.
func (m *Manager) Down(ctx context.Context) (string, error) {
	if err := m.ensureTables(ctx); err != nil {
		return "", err
	}
	done, err := m.applied(ctx, "schema_migrations")
	if err != nil {
		return "", err
	}
	if len(done) == 0 {
		return "", nil
	}
	names := make([]string, 0, len(done))
	for name := range done {
		names = append(names, name)
	}
	sort.Strings(names)
	last := names[len(names)-1]
	downName := strings.TrimSuffix(last, ".up.sql") + ".down.sql"
	if err := m.execFile(ctx, m.migrationsDir, downName, "schema_migrations", false); err != nil {
		return "", err
	}
	// execFile with record=false removes downName; the up entry needs
	// removing explicitly.
	if _, err := m.db.ExecContext(ctx,
		`DELETE FROM schema_migrations WHERE name = $1`, last); err != nil {
		return "", fmt.Errorf("unrecord %s: %w", last, err)
	}
	return last, nil
}

// Seed applies pending seed files once each.
func (m *Manager) Seed(ctx context.Context) (int, error) {
	if m.seedsDir == "" {
		return 0, nil
	}
	if err := m.ensureTables(ctx); err != nil {
		return 0, err
	}
	files, err := collectSQL(m.seedsDir, ".sql")
	if err != nil {
		return 0, err
	}
	done, err := m.applied(ctx, "schema_seeds")
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, name := range files {
		if done[name] {
			continue
		}
		if err := m.execFile(ctx, m.seedsDir, name, "schema_seeds", true); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// Status reports each known migration with its applied flag.
func (m *Manager) Status(ctx context.Context) (map[string]bool, error) {
	if err := m.ensureTables(ctx); err != nil {
		return nil, err
	}
	files, err := collectSQL(m.migrationsDir, ".up.sql")
	if err != nil {
		return nil, err
	}
	done, err := m.applied(ctx, "schema_migrations")
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(files))
	for _, name := range files {
		out[name] = done[name]
	}
	return out, nil
}
