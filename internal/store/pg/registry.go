package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

// kindTables maps lifecycle target kinds onto their tables. Every table
// carries status_id plus the audit columns, so one UPDATE shape serves all.
var kindTables = map[registry.Kind]string{
	registry.KindCompany:      "companies",
	registry.KindCompanyType:  "company_types",
	registry.KindCountry:      "countries",
	registry.KindDocumentType: "document_types",
	registry.KindWorkSite:     "work_sites",
	registry.KindRole:         "roles",
	registry.KindRoleLink:     "caller_roles",
	registry.KindCaller:       "callers",
}

func (s *Store) MarkInactive(ctx context.Context, targets []registry.Target, statusID, modifiedBy string, modifiedAt time.Time) error {
	if len(targets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, t := range targets {
		table, ok := kindTables[t.Kind]
		if !ok {
			return fmt.Errorf("unknown entity kind %q", t.Kind)
		}
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET status_id = $1, modified_by = $2, modified_at = $3 WHERE id = $4`, table),
			statusID, modifiedBy, modifiedAt, t.ID)
		if err != nil {
			return fmt.Errorf("mark %s %s inactive: %w", t.Kind, t.ID, maybePgError(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// The primary must exist; dependents that vanished are fine.
		if n == 0 && i == 0 {
			return registry.ErrNotFound
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Companies

const companyColumns = `id, document_type_id, document, check_digit, company_type_id,
	name, description, ministry_id, status_id,
	registered_by, registered_at, modified_by, modified_at`

func (s *Store) CreateCompany(ctx context.Context, c *registry.Company) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, document_type_id, document, check_digit, company_type_id,
			name, description, ministry_id, status_id, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.DocumentTypeID, c.Document, nullIfEmpty(c.CheckDigit), c.CompanyTypeID,
		c.Name, nullIfEmpty(c.Description), nullIfEmpty(c.MinistryID), c.StatusID,
		c.RegisteredBy, c.RegisteredAt)
	if err != nil {
		return fmt.Errorf("create company: %w", maybePgError(err))
	}
	return nil
}

func (s *Store) FindCompany(ctx context.Context, id string) (registry.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Company{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.Company{}, fmt.Errorf("find company: %w", err)
	}
	return c, nil
}

func (s *Store) ListCompanies(ctx context.Context, statusID string) ([]registry.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	var args []any
	if statusID != "" {
		query += ` WHERE status_id = $1`
		args = append(args, statusID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []registry.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCompany(ctx context.Context, id string, upd registry.CompanyUpdate) (registry.Company, error) {
	set := []string{"modified_by = $1", "modified_at = $2"}
	args := []any{upd.ModifiedBy, upd.ModifiedAt}
	next := 3
	add := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}
	if upd.DocumentTypeID != nil {
		add("document_type_id", *upd.DocumentTypeID)
	}
	if upd.Document != nil {
		add("document", *upd.Document)
	}
	if upd.CheckDigit != nil {
		add("check_digit", nullIfEmpty(*upd.CheckDigit))
	}
	if upd.CompanyTypeID != nil {
		add("company_type_id", *upd.CompanyTypeID)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", nullIfEmpty(*upd.Description))
	}
	if upd.MinistryID != nil {
		add("ministry_id", nullIfEmpty(*upd.MinistryID))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE companies SET %s WHERE id = $%d`, joinSet(set), next)
	if err := s.execExpectingRow(ctx, query, args...); err != nil {
		return registry.Company{}, fmt.Errorf("update company: %w", err)
	}
	return s.FindCompany(ctx, id)
}

func scanCompany(sc rowScanner) (registry.Company, error) {
	var (
		c           registry.Company
		checkDigit  sql.NullString
		description sql.NullString
		ministryID  sql.NullString
		modBy       sql.NullString
		modAt       sql.NullTime
	)
	err := sc.Scan(&c.ID, &c.DocumentTypeID, &c.Document, &checkDigit, &c.CompanyTypeID,
		&c.Name, &description, &ministryID, &c.StatusID,
		&c.RegisteredBy, &c.RegisteredAt, &modBy, &modAt)
	if err != nil {
		return registry.Company{}, err
	}
	c.CheckDigit = checkDigit.String
	c.Description = description.String
	c.MinistryID = ministryID.String
	applyNullStamps(modBy, modAt, &c.Fields)
	return c, nil
}

// Reference tables share one column shape; referenceTable parameterizes the
// queries.

const referenceColumns = `id, name, description, status_id,
	registered_by, registered_at, modified_by, modified_at`

type referenceRow struct {
	ID          string
	Name        string
	Description string
	StatusID    string
	ModBy       sql.NullString
	ModAt       sql.NullTime
	By          string
	At          time.Time
}

func (s *Store) createReference(ctx context.Context, table, id, name, description, statusID, by string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, name, description, status_id, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`, table),
		id, name, nullIfEmpty(description), statusID, by, at)
	if err != nil {
		return fmt.Errorf("create %s: %w", table, maybePgError(err))
	}
	return nil
}

func (s *Store) findReference(ctx context.Context, table, id string) (referenceRow, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, referenceColumns, table), id)
	r, err := scanReference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return referenceRow{}, registry.ErrNotFound
	}
	if err != nil {
		return referenceRow{}, fmt.Errorf("find %s: %w", table, err)
	}
	return r, nil
}

func (s *Store) listReferences(ctx context.Context, table, statusID string) ([]referenceRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, referenceColumns, table)
	var args []any
	if statusID != "" {
		query += ` WHERE status_id = $1`
		args = append(args, statusID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var out []referenceRow
	for rows.Next() {
		r, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) updateReference(ctx context.Context, table, id string, upd registry.ReferenceUpdate) (referenceRow, error) {
	set := []string{"modified_by = $1", "modified_at = $2"}
	args := []any{upd.ModifiedBy, upd.ModifiedAt}
	next := 3
	if upd.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", next))
		args = append(args, *upd.Name)
		next++
	}
	if upd.Description != nil {
		set = append(set, fmt.Sprintf("description = $%d", next))
		args = append(args, nullIfEmpty(*upd.Description))
		next++
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, table, joinSet(set), next)
	if err := s.execExpectingRow(ctx, query, args...); err != nil {
		return referenceRow{}, fmt.Errorf("update %s: %w", table, err)
	}
	return s.findReference(ctx, table, id)
}

func scanReference(sc rowScanner) (referenceRow, error) {
	var (
		r           referenceRow
		description sql.NullString
	)
	err := sc.Scan(&r.ID, &r.Name, &description, &r.StatusID, &r.By, &r.At, &r.ModBy, &r.ModAt)
	if err != nil {
		return referenceRow{}, err
	}
	r.Description = description.String
	return r, nil
}

func (r referenceRow) fields() audit.Fields {
	f := audit.Fields{RegisteredBy: r.By, RegisteredAt: r.At}
	applyNullStamps(r.ModBy, r.ModAt, &f)
	return f
}

func (s *Store) CreateCompanyType(ctx context.Context, ct *registry.CompanyType) error {
	return s.createReference(ctx, "company_types", ct.ID, ct.Name, ct.Description, ct.StatusID, ct.RegisteredBy, ct.RegisteredAt)
}

func (s *Store) FindCompanyType(ctx context.Context, id string) (registry.CompanyType, error) {
	r, err := s.findReference(ctx, "company_types", id)
	if err != nil {
		return registry.CompanyType{}, err
	}
	return registry.CompanyType{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()}, nil
}

func (s *Store) ListCompanyTypes(ctx context.Context, statusID string) ([]registry.CompanyType, error) {
	rs, err := s.listReferences(ctx, "company_types", statusID)
	if err != nil {
		return nil, err
	}
	out := make([]registry.CompanyType, 0, len(rs))
	for _, r := range rs {
		out = append(out, registry.CompanyType{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()})
	}
	return out, nil
}

func (s *Store) UpdateCompanyType(ctx context.Context, id string, upd registry.ReferenceUpdate) (registry.CompanyType, error) {
	r, err := s.updateReference(ctx, "company_types", id, upd)
	if err != nil {
		return registry.CompanyType{}, err
	}
	return registry.CompanyType{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()}, nil
}

func (s *Store) CreateCountry(ctx context.Context, c *registry.Country) error {
	return s.createReference(ctx, "countries", c.ID, c.Name, c.Description, c.StatusID, c.RegisteredBy, c.RegisteredAt)
}

func (s *Store) FindCountry(ctx context.Context, id string) (registry.Country, error) {
	r, err := s.findReference(ctx, "countries", id)
	if err != nil {
		return registry.Country{}, err
	}
	return registry.Country{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()}, nil
}

func (s *Store) ListCountries(ctx context.Context, statusID string) ([]registry.Country, error) {
	rs, err := s.listReferences(ctx, "countries", statusID)
	if err != nil {
		return nil, err
	}
	out := make([]registry.Country, 0, len(rs))
	for _, r := range rs {
		out = append(out, registry.Country{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()})
	}
	return out, nil
}

func (s *Store) UpdateCountry(ctx context.Context, id string, upd registry.ReferenceUpdate) (registry.Country, error) {
	r, err := s.updateReference(ctx, "countries", id, upd)
	if err != nil {
		return registry.Country{}, err
	}
	return registry.Country{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()}, nil
}

func (s *Store) CreateDocumentType(ctx context.Context, dt *registry.DocumentType) error {
	return s.createReference(ctx, "document_types", dt.ID, dt.Name, dt.Description, dt.StatusID, dt.RegisteredBy, dt.RegisteredAt)
}

func (s *Store) FindDocumentType(ctx context.Context, id string) (registry.DocumentType, error) {
	r, err := s.findReference(ctx, "document_types", id)
	if err != nil {
		return registry.DocumentType{}, err
	}
	return registry.DocumentType{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()}, nil
}

func (s *Store) ListDocumentTypes(ctx context.Context, statusID string) ([]registry.DocumentType, error) {
	rs, err := s.listReferences(ctx, "document_types", statusID)
	if err != nil {
		return nil, err
	}
	out := make([]registry.DocumentType, 0, len(rs))
	for _, r := range rs {
		out = append(out, registry.DocumentType{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()})
	}
	return out, nil
}

func (s *Store) UpdateDocumentType(ctx context.Context, id string, upd registry.ReferenceUpdate) (registry.DocumentType, error) {
	r, err := s.updateReference(ctx, "document_types", id, upd)
	if err != nil {
		return registry.DocumentType{}, err
	}
	return registry.DocumentType{ID: r.ID, Name: r.Name, Description: r.Description, StatusID: r.StatusID, Fields: r.fields()}, nil
}

// Work sites

const workSiteColumns = `id, name, description, company_id, status_id,
	registered_by, registered_at, modified_by, modified_at`

func (s *Store) CreateWorkSite(ctx context.Context, ws *registry.WorkSite) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO work_sites (id, name, description, company_id, status_id, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ws.ID, ws.Name, nullIfEmpty(ws.Description), ws.CompanyID, ws.StatusID,
		ws.RegisteredBy, ws.RegisteredAt)
	if err != nil {
		return fmt.Errorf("create work site: %w", maybePgError(err))
	}
	return nil
}

func (s *Store) FindWorkSite(ctx context.Context, id string) (registry.WorkSite, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workSiteColumns+` FROM work_sites WHERE id = $1`, id)
	ws, err := scanWorkSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.WorkSite{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.WorkSite{}, fmt.Errorf("find work site: %w", err)
	}
	return ws, nil
}

func (s *Store) ListWorkSites(ctx context.Context, statusID string) ([]registry.WorkSite, error) {
	query := `SELECT ` + workSiteColumns + ` FROM work_sites`
	var args []any
	if statusID != "" {
		query += ` WHERE status_id = $1`
		args = append(args, statusID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work sites: %w", err)
	}
	defer rows.Close()

	var out []registry.WorkSite
	for rows.Next() {
		ws, err := scanWorkSite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

func (s *Store) UpdateWorkSite(ctx context.Context, id string, upd registry.WorkSiteUpdate) (registry.WorkSite, error) {
	set := []string{"modified_by = $1", "modified_at = $2"}
	args := []any{upd.ModifiedBy, upd.ModifiedAt}
	next := 3
	add := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", nullIfEmpty(*upd.Description))
	}
	if upd.CompanyID != nil {
		add("company_id", *upd.CompanyID)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE work_sites SET %s WHERE id = $%d`, joinSet(set), next)
	if err := s.execExpectingRow(ctx, query, args...); err != nil {
		return registry.WorkSite{}, fmt.Errorf("update work site: %w", err)
	}
	return s.FindWorkSite(ctx, id)
}

func scanWorkSite(sc rowScanner) (registry.WorkSite, error) {
	var (
		ws          registry.WorkSite
		description sql.NullString
		modBy       sql.NullString
		modAt       sql.NullTime
	)
	err := sc.Scan(&ws.ID, &ws.Name, &description, &ws.CompanyID, &ws.StatusID,
		&ws.RegisteredBy, &ws.RegisteredAt, &modBy, &modAt)
	if err != nil {
		return registry.WorkSite{}, err
	}
	ws.Description = description.String
	applyNullStamps(modBy, modAt, &ws.Fields)
	return ws, nil
}

// Roles

const roleColumns = `id, name, description, status_id,
	registered_by, registered_at, modified_by, modified_at`

func (s *Store) CreateRole(ctx context.Context, r *auth.Role) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, status_id, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.Name, nullIfEmpty(r.Description), r.StatusID, r.RegisteredBy, r.RegisteredAt)
	if err != nil {
		return fmt.Errorf("create role: %w", maybePgError(err))
	}
	return nil
}

func (s *Store) FindRole(ctx context.Context, id string) (auth.Role, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, fmt.Errorf("find role: %w", err)
	}
	return role, nil
}

func (s *Store) ListRoles(ctx context.Context, statusID string) ([]auth.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles`
	var args []any
	if statusID != "" {
		query += ` WHERE status_id = $1`
		args = append(args, statusID)
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var out []auth.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRole(ctx context.Context, id string, upd registry.RoleUpdate) (auth.Role, error) {
	set := []string{"modified_by = $1", "modified_at = $2"}
	args := []any{upd.ModifiedBy, upd.ModifiedAt}
	next := 3
	if upd.Name != nil {
		set = append(set, fmt.Sprintf("name = $%d", next))
		args = append(args, *upd.Name)
		next++
	}
	if upd.Description != nil {
		set = append(set, fmt.Sprintf("description = $%d", next))
		args = append(args, nullIfEmpty(*upd.Description))
		next++
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE roles SET %s WHERE id = $%d`, joinSet(set), next)
	if err := s.execExpectingRow(ctx, query, args...); err != nil {
		return auth.Role{}, fmt.Errorf("update role: %w", err)
	}
	return s.FindRole(ctx, id)
}

func scanRole(sc rowScanner) (auth.Role, error) {
	var (
		role        auth.Role
		description sql.NullString
		modBy       sql.NullString
		modAt       sql.NullTime
	)
	err := sc.Scan(&role.ID, &role.Name, &description, &role.StatusID,
		&role.RegisteredBy, &role.RegisteredAt, &modBy, &modAt)
	if err != nil {
		return auth.Role{}, err
	}
	role.Description = description.String
	applyNullStamps(modBy, modAt, &role.Fields)
	return role, nil
}

// Role links

const linkColumns = `id, caller_id, role_id, status_id,
	registered_by, registered_at, modified_by, modified_at`

func (s *Store) CreateRoleLink(ctx context.Context, link *auth.RoleLink) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO caller_roles (id, caller_id, role_id, status_id, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		link.ID, link.CallerID, link.RoleID, link.StatusID, link.RegisteredBy, link.RegisteredAt)
	if err != nil {
		return fmt.Errorf("create role link: %w", maybePgError(err))
	}
	return nil
}

func (s *Store) FindRoleLink(ctx context.Context, id string) (auth.RoleLink, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM caller_roles WHERE id = $1`, id)
	link, err := scanRoleLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.RoleLink{}, registry.ErrNotFound
	}
	if err != nil {
		return auth.RoleLink{}, fmt.Errorf("find role link: %w", err)
	}
	return link, nil
}

func (s *Store) ListRoleLinks(ctx context.Context, callerID, statusID string) ([]auth.RoleLink, error) {
	query := `SELECT ` + linkColumns + ` FROM caller_roles`
	var (
		where []string
		args  []any
	)
	if callerID != "" {
		args = append(args, callerID)
		where = append(where, fmt.Sprintf("caller_id = $%d", len(args)))
	}
	if statusID != "" {
		args = append(args, statusID)
		where = append(where, fmt.Sprintf("status_id = $%d", len(args)))
	}
	if len(where) > 0 {
		query += ` WHERE ` + joinAnd(where)
	}
	query += ` ORDER BY registered_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list role links: %w", err)
	}
	defer rows.Close()

	var out []auth.RoleLink
	for rows.Next() {
		link, err := scanRoleLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func (s *Store) LinksForRole(ctx context.Context, roleID, statusID string) ([]auth.RoleLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM caller_roles WHERE role_id = $1 AND status_id = $2 ORDER BY registered_at`,
		roleID, statusID)
	if err != nil {
		return nil, fmt.Errorf("links for role: %w", err)
	}
	defer rows.Close()

	var out []auth.RoleLink
	for rows.Next() {
		link, err := scanRoleLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, link)
	}
	return out, rows.Err()
}

func (s *Store) LinksForCaller(ctx context.Context, callerID, statusID string) ([]auth.RoleLink, error) {
	return s.ListRoleLinks(ctx, callerID, statusID)
}

func scanRoleLink(sc rowScanner) (auth.RoleLink, error) {
	var (
		link  auth.RoleLink
		modBy sql.NullString
		modAt sql.NullTime
	)
	err := sc.Scan(&link.ID, &link.CallerID, &link.RoleID, &link.StatusID,
		&link.RegisteredBy, &link.RegisteredAt, &modBy, &modAt)
	if err != nil {
		return auth.RoleLink{}, err
	}
	applyNullStamps(modBy, modAt, &link.Fields)
	return link, nil
}
