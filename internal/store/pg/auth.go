package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

const callerColumns = `id, document_type_id, document, email, names, surnames, phone,
	company_id, country_id, status_id, password_hash,
	registered_by, registered_at, modified_by, modified_at`

func (s *Store) FindCaller(ctx context.Context, id string) (auth.Caller, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+callerColumns+` FROM callers WHERE id = $1`, id)
	return s.scanCallerWithRoles(ctx, row)
}

func (s *Store) FindCallerByDocument(ctx context.Context, document string) (auth.Caller, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+callerColumns+` FROM callers WHERE document = $1`, document)
	return s.scanCallerWithRoles(ctx, row)
}

func (s *Store) ListCallers(ctx context.Context, statusID string) ([]auth.Caller, error) {
	query := `SELECT ` + callerColumns + ` FROM callers`
	var args []any
	if statusID != "" {
		query += ` WHERE status_id = $1`
		args = append(args, statusID)
	}
	query += ` ORDER BY registered_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list callers: %w", err)
	}
	defer rows.Close()

	var out []auth.Caller
	for rows.Next() {
		caller, err := scanCallerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, caller)
	}
	return out, rows.Err()
}

func (s *Store) CreateCaller(ctx context.Context, c *auth.Caller) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO callers (id, document_type_id, document, email, names, surnames, phone,
			company_id, country_id, status_id, password_hash, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.DocumentTypeID, c.Document, c.Email, c.Names, c.Surnames, nullIfEmpty(c.Phone),
		c.CompanyID, c.CountryID, c.StatusID, c.PasswordHash, c.RegisteredBy, c.RegisteredAt)
	if err != nil {
		return fmt.Errorf("create caller: %w", maybePgError(err))
	}
	return nil
}

func (s *Store) UpdateCaller(ctx context.Context, id string, upd registry.CallerUpdate) (auth.Caller, error) {
	set := []string{"modified_by = $1", "modified_at = $2"}
	args := []any{upd.ModifiedBy, upd.ModifiedAt}
	next := 3
	add := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Names != nil {
		add("names", *upd.Names)
	}
	if upd.Surnames != nil {
		add("surnames", *upd.Surnames)
	}
	if upd.Phone != nil {
		add("phone", nullIfEmpty(*upd.Phone))
	}
	if upd.CompanyID != nil {
		add("company_id", *upd.CompanyID)
	}
	if upd.CountryID != nil {
		add("country_id", *upd.CountryID)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE callers SET %s WHERE id = $%d`, joinSet(set), next)
	if err := s.execExpectingRow(ctx, query, args...); err != nil {
		return auth.Caller{}, fmt.Errorf("update caller: %w", err)
	}
	return s.FindCaller(ctx, id)
}

func (s *Store) UpdateCallerPassword(ctx context.Context, id, hash string, modifiedBy string, modifiedAt time.Time) error {
	err := s.execExpectingRow(ctx,
		`UPDATE callers SET password_hash = $1, modified_by = $2, modified_at = $3 WHERE id = $4`,
		hash, modifiedBy, modifiedAt, id)
	if err != nil {
		return fmt.Errorf("update caller password: %w", err)
	}
	return nil
}

// scanCallerWithRoles loads the caller and then its active role ids. The
// roles claim and displays depend on this ordering being stable.
func (s *Store) scanCallerWithRoles(ctx context.Context, row *sql.Row) (auth.Caller, error) {
	caller, err := scanCallerRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Caller{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Caller{}, fmt.Errorf("scan caller: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT cr.role_id FROM caller_roles cr
		 JOIN statuses st ON st.id = cr.status_id
		 WHERE cr.caller_id = $1 AND st.sequence = 1
		 ORDER BY cr.registered_at`, caller.ID)
	if err != nil {
		return auth.Caller{}, fmt.Errorf("load caller roles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return auth.Caller{}, err
		}
		caller.RoleIDs = append(caller.RoleIDs, roleID)
	}
	return caller, rows.Err()
}

func scanCallerRow(sc rowScanner) (auth.Caller, error) {
	var (
		c     auth.Caller
		phone sql.NullString
		modBy sql.NullString
		modAt sql.NullTime
	)
	err := sc.Scan(&c.ID, &c.DocumentTypeID, &c.Document, &c.Email, &c.Names, &c.Surnames, &phone,
		&c.CompanyID, &c.CountryID, &c.StatusID, &c.PasswordHash,
		&c.RegisteredBy, &c.RegisteredAt, &modBy, &modAt)
	if err != nil {
		return auth.Caller{}, err
	}
	c.Phone = phone.String
	applyNullStamps(modBy, modAt, &c.Fields)
	return c, nil
}

func (s *Store) ViewPermissionFor(ctx context.Context, callerID, view string) (auth.ViewPermission, error) {
	var p auth.ViewPermission
	err := s.db.QueryRowContext(ctx,
		`SELECT caller_id, view, can_query, can_create, can_update, can_delete
		 FROM view_permissions WHERE caller_id = $1 AND view = $2`, callerID, view).
		Scan(&p.CallerID, &p.View, &p.CanQuery, &p.CanCreate, &p.CanUpdate, &p.CanDelete)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.ViewPermission{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.ViewPermission{}, fmt.Errorf("load view permission: %w", err)
	}
	return p, nil
}
