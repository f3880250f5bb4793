// Package mem is an in-memory store implementing the same interfaces as the
// Postgres layer. It backs unit tests that need a full store without a
// database.
package mem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/registry"
	"registra.org/internal/status"
)

type Store struct {
	mu sync.Mutex

	statuses      map[string]status.Record
	companies     map[string]registry.Company
	companyTypes  map[string]registry.CompanyType
	countries     map[string]registry.Country
	documentTypes map[string]registry.DocumentType
	workSites     map[string]registry.WorkSite
	roles         map[string]auth.Role
	links         map[string]auth.RoleLink
	callers       map[string]auth.Caller
	perms         map[string]auth.ViewPermission

	// FailMarkInactive, when set, makes MarkInactive fail without applying
	// anything. Used to exercise transactional behavior.
	FailMarkInactive error
}

func New() *Store {
	return &Store{
		statuses:      make(map[string]status.Record),
		companies:     make(map[string]registry.Company),
		companyTypes:  make(map[string]registry.CompanyType),
		countries:     make(map[string]registry.Country),
		documentTypes: make(map[string]registry.DocumentType),
		workSites:     make(map[string]registry.WorkSite),
		roles:         make(map[string]auth.Role),
		links:         make(map[string]auth.RoleLink),
		callers:       make(map[string]auth.Caller),
		perms:         make(map[string]auth.ViewPermission),
	}
}

func permKey(callerID, view string) string {
	return callerID + "|" + view
}

// AddStatus seeds a status record directly.
func (s *Store) AddStatus(rec status.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[rec.ID] = rec
}

// SetPermission seeds or replaces a permission row directly.
func (s *Store) SetPermission(p auth.ViewPermission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms[permKey(p.CallerID, p.View)] = p
}

// Statuses

func (s *Store) StatusBySequence(ctx context.Context, seq status.Sequence) (status.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.statuses {
		if rec.Sequence == seq {
			return rec, nil
		}
	}
	return status.Record{}, status.ErrNotFound
}

func (s *Store) FindStatus(ctx context.Context, id string) (status.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.statuses[id]
	if !ok {
		return status.Record{}, status.ErrNotFound
	}
	return rec, nil
}

func (s *Store) ListStatuses(ctx context.Context) ([]status.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]status.Record, 0, len(s.statuses))
	for _, rec := range s.statuses {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// Permissions

func (s *Store) ViewPermissionFor(ctx context.Context, callerID, view string) (auth.ViewPermission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[permKey(callerID, view)]
	if !ok {
		return auth.ViewPermission{}, auth.ErrNotFound
	}
	return p, nil
}

// Companies

func (s *Store) CreateCompany(ctx context.Context, c *registry.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = *c
	return nil
}

func (s *Store) FindCompany(ctx context.Context, id string) (registry.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return registry.Company{}, registry.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCompanies(ctx context.Context, statusID string) ([]registry.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []registry.Company
	for _, c := range s.companies {
		if statusID == "" || c.StatusID == statusID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCompany(ctx context.Context, id string, upd registry.CompanyUpdate) (registry.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return registry.Company{}, registry.ErrNotFound
	}
	if upd.DocumentTypeID != nil {
		c.DocumentTypeID = *upd.DocumentTypeID
	}
	if upd.Document != nil {
		c.Document = *upd.Document
	}
	if upd.CheckDigit != nil {
		c.CheckDigit = *upd.CheckDigit
	}
	if upd.CompanyTypeID != nil {
		c.CompanyTypeID = *upd.CompanyTypeID
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.MinistryID != nil {
		c.MinistryID = *upd.MinistryID
	}
	setModified(&c.Fields, upd.ModifiedBy, upd.ModifiedAt)
	s.companies[id] = c
	return c, nil
}

// Reference tables

func (s *Store) CreateCompanyType(ctx context.Context, ct *registry.CompanyType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companyTypes[ct.ID] = *ct
	return nil
}

func (s *Store) FindCompanyType(ctx context.Context, id string) (registry.CompanyType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.companyTypes[id]
	if !ok {
		return registry.CompanyType{}, registry.ErrNotFound
	}
	return ct, nil
}

func (s *Store) ListCompanyTypes(ctx context.Context, statusID string) ([]registry.CompanyType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []registry.CompanyType
	for _, ct := range s.companyTypes {
		if statusID == "" || ct.StatusID == statusID {
			out = append(out, ct)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCompanyType(ctx context.Context, id string, upd registry.ReferenceUpdate) (registry.CompanyType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.companyTypes[id]
	if !ok {
		return registry.CompanyType{}, registry.ErrNotFound
	}
	if upd.Name != nil {
		ct.Name = *upd.Name
	}
	if upd.Description != nil {
		ct.Description = *upd.Description
	}
	setModified(&ct.Fields, upd.ModifiedBy, upd.ModifiedAt)
	s.companyTypes[id] = ct
	return ct, nil
}

func (s *Store) CreateCountry(ctx context.Context, c *registry.Country) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries[c.ID] = *c
	return nil
}

func (s *Store) FindCountry(ctx context.Context, id string) (registry.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.countries[id]
	if !ok {
		return registry.Country{}, registry.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCountries(ctx context.Context, statusID string) ([]registry.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []registry.Country
	for _, c := range s.countries {
		if statusID == "" || c.StatusID == statusID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCountry(ctx context.Context, id string, upd registry.ReferenceUpdate) (registry.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.countries[id]
	if !ok {
		return registry.Country{}, registry.ErrNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	setModified(&c.Fields, upd.ModifiedBy, upd.ModifiedAt)
	s.countries[id] = c
	return c, nil
}

func (s *Store) CreateDocumentType(ctx context.Context, dt *registry.DocumentType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentTypes[dt.ID] = *dt
	return nil
}

func (s *Store) FindDocumentType(ctx context.Context, id string) (registry.DocumentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dt, ok := s.documentTypes[id]
	if !ok {
		return registry.DocumentType{}, registry.ErrNotFound
	}
	return dt, nil
}

func (s *Store) ListDocumentTypes(ctx context.Context, statusID string) ([]registry.DocumentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []registry.DocumentType
	for _, dt := range s.documentTypes {
		if statusID == "" || dt.StatusID == statusID {
			out = append(out, dt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateDocumentType(ctx context.Context, id string, upd registry.ReferenceUpdate) (registry.DocumentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dt, ok := s.documentTypes[id]
	if !ok {
		return registry.DocumentType{}, registry.ErrNotFound
	}
	if upd.Name != nil {
		dt.Name = *upd.Name
	}
	if upd.Description != nil {
		dt.Description = *upd.Description
	}
	setModified(&dt.Fields, upd.ModifiedBy, upd.ModifiedAt)
	s.documentTypes[id] = dt
	return dt, nil
}

// Work sites

func (s *Store) CreateWorkSite(ctx context.Context, ws *registry.WorkSite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workSites[ws.ID] = *ws
	return nil
}

func (s *Store) FindWorkSite(ctx context.Context, id string) (registry.WorkSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workSites[id]
	if !ok {
		return registry.WorkSite{}, registry.ErrNotFound
	}
	return ws, nil
}

func (s *Store) ListWorkSites(ctx context.Context, statusID string) ([]registry.WorkSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []registry.WorkSite
	for _, ws := range s.workSites {
		if statusID == "" || ws.StatusID == statusID {
			out = append(out, ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateWorkSite(ctx context.Context, id string, upd registry.WorkSiteUpdate) (registry.WorkSite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workSites[id]
	if !ok {
		return registry.WorkSite{}, registry.ErrNotFound
	}
	if upd.Name != nil {
		ws.Name = *upd.Name
	}
	if upd.Description != nil {
		ws.Description = *upd.Description
	}
	if upd.CompanyID != nil {
		ws.CompanyID = *upd.CompanyID
	}
	setModified(&ws.Fields, upd.ModifiedBy, upd.ModifiedAt)
	s.workSites[id] = ws
	return ws, nil
}

// Roles and links

func (s *Store) CreateRole(ctx context.Context, r *auth.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID] = *r
	return nil
}

func (s *Store) FindRole(ctx context.Context, id string) (auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return auth.Role{}, auth.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context, statusID string) ([]auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.Role
	for _, r := range s.roles {
		if statusID == "" || r.StatusID == statusID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateRole(ctx context.Context, id string, upd registry.RoleUpdate) (auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	if !ok {
		return auth.Role{}, registry.ErrNotFound
	}
	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	setModified(&r.Fields, upd.ModifiedBy, upd.ModifiedAt)
	s.roles[id] = r
	return r, nil
}

func (s *Store) CreateRoleLink(ctx context.Context, link *auth.RoleLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.ID] = *link
	return nil
}

func (s *Store) FindRoleLink(ctx context.Context, id string) (auth.RoleLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return auth.RoleLink{}, registry.ErrNotFound
	}
	return link, nil
}

func (s *Store) ListRoleLinks(ctx context.Context, callerID, statusID string) ([]auth.RoleLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.RoleLink
	for _, link := range s.links {
		if callerID != "" && link.CallerID != callerID {
			continue
		}
		if statusID != "" && link.StatusID != statusID {
			continue
		}
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (s *Store) LinksForRole(ctx context.Context, roleID, statusID string) ([]auth.RoleLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.RoleLink
	for _, link := range s.links {
		if link.RoleID == roleID && link.StatusID == statusID {
			out = append(out, link)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (s *Store) LinksForCaller(ctx context.Context, callerID, statusID string) ([]auth.RoleLink, error) {
	return s.ListRoleLinks(ctx, callerID, statusID)
}

// Callers

func (s *Store) CreateCaller(ctx context.Context, c *auth.Caller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.callers {
		if existing.Document == c.Document {
			return fmt.Errorf("%w: document %q", registry.ErrConflict, c.Document)
		}
	}
	s.callers[c.ID] = *c
	return nil
}

func (s *Store) FindCaller(ctx context.Context, id string) (auth.Caller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.callers[id]
	if !ok {
		return auth.Caller{}, auth.ErrNotFound
	}
	return s.withActiveRoles(c), nil
}

func (s *Store) FindCallerByDocument(ctx context.Context, document string) (auth.Caller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.callers {
		if c.Document == document {
			return s.withActiveRoles(c), nil
		}
	}
	return auth.Caller{}, auth.ErrNotFound
}

func (s *Store) ListCallers(ctx context.Context, statusID string) ([]auth.Caller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.Caller
	for _, c := range s.callers {
		if statusID == "" || c.StatusID == statusID {
			out = append(out, s.withActiveRoles(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Document < out[j].Document })
	return out, nil
}

func (s *Store) UpdateCaller(ctx context.Context, id string, upd registry.CallerUpdate) (auth.Caller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.callers[id]
	if !ok {
		return auth.Caller{}, registry.ErrNotFound
	}
	if upd.Email != nil {
		c.Email = *upd.Email
	}
	if upd.Names != nil {
		c.Names = *upd.Names
	}
	if upd.Surnames != nil {
		c.Surnames = *upd.Surnames
	}
	if upd.Phone != nil {
		c.Phone = *upd.Phone
	}
	if upd.CompanyID != nil {
		c.CompanyID = *upd.CompanyID
	}
	if upd.CountryID != nil {
		c.CountryID = *upd.CountryID
	}
	setModified(&c.Fields, upd.ModifiedBy, upd.ModifiedAt)
	s.callers[id] = c
	return s.withActiveRoles(c), nil
}

func (s *Store) UpdateCallerPassword(ctx context.Context, id, hash string, modifiedBy string, modifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.callers[id]
	if !ok {
		return registry.ErrNotFound
	}
	c.PasswordHash = hash
	setModified(&c.Fields, modifiedBy, modifiedAt)
	s.callers[id] = c
	return nil
}

// withActiveRoles attaches role ids from links whose status row has the
// active sequence. Callers must hold s.mu.
func (s *Store) withActiveRoles(c auth.Caller) auth.Caller {
	var roleIDs []string
	type linkAt struct {
		id string
		at time.Time
	}
	var ordered []linkAt
	for _, link := range s.links {
		if link.CallerID != c.ID {
			continue
		}
		rec, ok := s.statuses[link.StatusID]
		if !ok || rec.Sequence != status.SequenceActive {
			continue
		}
		ordered = append(ordered, linkAt{id: link.RoleID, at: link.RegisteredAt})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].at.Before(ordered[j].at) })
	for _, l := range ordered {
		roleIDs = append(roleIDs, l.id)
	}
	c.RoleIDs = roleIDs
	return c
}

// MarkInactive applies all targets or none, mirroring the transactional
// behavior of the SQL store.
func (s *Store) MarkInactive(ctx context.Context, targets []registry.Target, statusID, modifiedBy string, modifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMarkInactive != nil {
		return s.FailMarkInactive
	}
	if len(targets) == 0 {
		return nil
	}

	apply := make([]func(), 0, len(targets))
	for i, t := range targets {
		fn, found := s.markFn(t, statusID, modifiedBy, modifiedAt)
		if !found {
			if i == 0 {
				return registry.ErrNotFound
			}
			continue
		}
		apply = append(apply, fn)
	}
	for _, fn := range apply {
		fn()
	}
	return nil
}

func (s *Store) markFn(t registry.Target, statusID, by string, at time.Time) (func(), bool) {
	switch t.Kind {
	case registry.KindCompany:
		c, ok := s.companies[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			c.StatusID = statusID
			setModified(&c.Fields, by, at)
			s.companies[t.ID] = c
		}, true
	case registry.KindCompanyType:
		ct, ok := s.companyTypes[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			ct.StatusID = statusID
			setModified(&ct.Fields, by, at)
			s.companyTypes[t.ID] = ct
		}, true
	case registry.KindCountry:
		c, ok := s.countries[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			c.StatusID = statusID
			setModified(&c.Fields, by, at)
			s.countries[t.ID] = c
		}, true
	case registry.KindDocumentType:
		dt, ok := s.documentTypes[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			dt.StatusID = statusID
			setModified(&dt.Fields, by, at)
			s.documentTypes[t.ID] = dt
		}, true
	case registry.KindWorkSite:
		ws, ok := s.workSites[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			ws.StatusID = statusID
			setModified(&ws.Fields, by, at)
			s.workSites[t.ID] = ws
		}, true
	case registry.KindRole:
		r, ok := s.roles[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			r.StatusID = statusID
			setModified(&r.Fields, by, at)
			s.roles[t.ID] = r
		}, true
	case registry.KindRoleLink:
		link, ok := s.links[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			link.StatusID = statusID
			setModified(&link.Fields, by, at)
			s.links[t.ID] = link
		}, true
	case registry.KindCaller:
		c, ok := s.callers[t.ID]
		if !ok {
			return nil, false
		}
		return func() {
			c.StatusID = statusID
			setModified(&c.Fields, by, at)
			s.callers[t.ID] = c
		}, true
	default:
		return nil, false
	}
}

func setModified(f *audit.Fields, by string, at time.Time) {
	f.ModifiedBy = &by
	f.ModifiedAt = &at
}
