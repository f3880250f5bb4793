package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/ids"
	"registra.org/internal/status"
)

// Service carries the registry use-cases. Every mutating call takes the
// acting caller explicitly; nothing is read from ambient request state.
type Service struct {
	store     Store
	catalog   *status.Catalog
	stamper   *audit.Stamper
	lifecycle *Lifecycle
}

func NewService(store Store, catalog *status.Catalog, stamper *audit.Stamper) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry: store is required")
	}
	if catalog == nil {
		return nil, errors.New("registry: status catalog is required")
	}
	if stamper == nil {
		return nil, errors.New("registry: stamper is required")
	}
	lc, err := NewLifecycle(store, catalog, stamper)
	if err != nil {
		return nil, err
	}
	s := &Service{store: store, catalog: catalog, stamper: stamper, lifecycle: lc}

	activeLinks := func(ctx context.Context, list func(context.Context, string, string) ([]auth.RoleLink, error), id string) ([]Target, error) {
		active, err := catalog.Resolve(ctx, status.SequenceActive)
		if err != nil {
			return nil, err
		}
		links, err := list(ctx, id, active.ID)
		if err != nil {
			return nil, err
		}
		targets := make([]Target, 0, len(links))
		for _, link := range links {
			targets = append(targets, Target{Kind: KindRoleLink, ID: link.ID})
		}
		return targets, nil
	}
	lc.RegisterDependents(KindRole, func(ctx context.Context, roleID string) ([]Target, error) {
		return activeLinks(ctx, store.LinksForRole, roleID)
	})
	lc.RegisterDependents(KindCaller, func(ctx context.Context, callerID string) ([]Target, error) {
		return activeLinks(ctx, store.LinksForCaller, callerID)
	})
	return s, nil
}

// Lifecycle exposes the soft-delete engine, mainly so extra dependents can be
// registered at wiring time.
func (s *Service) Lifecycle() *Lifecycle {
	return s.lifecycle
}

func (s *Service) activeStatusID(ctx context.Context) (string, error) {
	active, err := s.catalog.Resolve(ctx, status.SequenceActive)
	if err != nil {
		return "", err
	}
	return active.ID, nil
}

// refExists validates a foreign reference named by the request body.
func refExists[T any](find func(context.Context, string) (T, error), ctx context.Context, id, what string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, what)
	}
	if _, err := find(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, auth.ErrNotFound) {
			return fmt.Errorf("%w: %s %q not found", ErrInvalidInput, what, id)
		}
		return err
	}
	return nil
}

func requireField(value, what string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, what)
	}
	return value, nil
}

// Companies

type CompanyInput struct {
	DocumentTypeID string `json:"document_type_id"`
	Document       string `json:"document"`
	CheckDigit     string `json:"check_digit"`
	CompanyTypeID  string `json:"company_type_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	MinistryID     string `json:"ministry_id"`
}

func (s *Service) CreateCompany(ctx context.Context, actor auth.Caller, in CompanyInput) (Company, error) {
	name, err := requireField(in.Name, "company name")
	if err != nil {
		return Company{}, err
	}
	document, err := requireField(in.Document, "company document")
	if err != nil {
		return Company{}, err
	}
	if err := refExists(s.store.FindDocumentType, ctx, in.DocumentTypeID, "document type"); err != nil {
		return Company{}, err
	}
	if err := refExists(s.store.FindCompanyType, ctx, in.CompanyTypeID, "company type"); err != nil {
		return Company{}, err
	}
	statusID, err := s.activeStatusID(ctx)
	if err != nil {
		return Company{}, err
	}
	company := Company{
		ID:             ids.New(),
		DocumentTypeID: strings.TrimSpace(in.DocumentTypeID),
		Document:       document,
		CheckDigit:     strings.TrimSpace(in.CheckDigit),
		CompanyTypeID:  strings.TrimSpace(in.CompanyTypeID),
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		MinistryID:     strings.TrimSpace(in.MinistryID),
		StatusID:       statusID,
	}
	s.stamper.StampCreate(&company.Fields, actor.Document)
	if err := s.store.CreateCompany(ctx, &company); err != nil {
		return Company{}, err
	}
	audit.LogEvent(ctx, "company.created", map[string]any{"id": company.ID})
	return company, nil
}

func (s *Service) GetCompany(ctx context.Context, id string) (Company, error) {
	id, err := requireField(id, "company id")
	if err != nil {
		return Company{}, err
	}
	return s.store.FindCompany(ctx, id)
}

// ListCompanies returns active companies; includeInactive widens the result
// to every lifecycle state.
func (s *Service) ListCompanies(ctx context.Context, includeInactive bool) ([]Company, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListCompanies(ctx, statusID)
}

func (s *Service) UpdateCompany(ctx context.Context, actor auth.Caller, id string, upd CompanyUpdate) (Company, error) {
	id, err := requireField(id, "company id")
	if err != nil {
		return Company{}, err
	}
	if upd.Name != nil {
		name, err := requireField(*upd.Name, "company name")
		if err != nil {
			return Company{}, err
		}
		upd.Name = &name
	}
	if upd.DocumentTypeID != nil {
		if err := refExists(s.store.FindDocumentType, ctx, *upd.DocumentTypeID, "document type"); err != nil {
			return Company{}, err
		}
	}
	if upd.CompanyTypeID != nil {
		if err := refExists(s.store.FindCompanyType, ctx, *upd.CompanyTypeID, "company type"); err != nil {
			return Company{}, err
		}
	}
	upd.ModifiedBy = actor.Document
	upd.ModifiedAt = s.stamper.Now()
	return s.store.UpdateCompany(ctx, id, upd)
}

func (s *Service) DeleteCompany(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindCompany, ID: id}, actor.Document)
}

// Reference tables

type ReferenceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) createReference(ctx context.Context, actor auth.Caller, in ReferenceInput, what string) (string, string, string, audit.Fields, error) {
	name, err := requireField(in.Name, what+" name")
	if err != nil {
		return "", "", "", audit.Fields{}, err
	}
	statusID, err := s.activeStatusID(ctx)
	if err != nil {
		return "", "", "", audit.Fields{}, err
	}
	var f audit.Fields
	s.stamper.StampCreate(&f, actor.Document)
	return ids.New(), name, statusID, f, nil
}

func (s *Service) CreateCompanyType(ctx context.Context, actor auth.Caller, in ReferenceInput) (CompanyType, error) {
	id, name, statusID, f, err := s.createReference(ctx, actor, in, "company type")
	if err != nil {
		return CompanyType{}, err
	}
	ct := CompanyType{ID: id, Name: name, Description: strings.TrimSpace(in.Description), StatusID: statusID, Fields: f}
	if err := s.store.CreateCompanyType(ctx, &ct); err != nil {
		return CompanyType{}, err
	}
	return ct, nil
}

func (s *Service) GetCompanyType(ctx context.Context, id string) (CompanyType, error) {
	id, err := requireField(id, "company type id")
	if err != nil {
		return CompanyType{}, err
	}
	return s.store.FindCompanyType(ctx, id)
}

func (s *Service) ListCompanyTypes(ctx context.Context, includeInactive bool) ([]CompanyType, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListCompanyTypes(ctx, statusID)
}

func (s *Service) UpdateCompanyType(ctx context.Context, actor auth.Caller, id string, upd ReferenceUpdate) (CompanyType, error) {
	id, err := requireField(id, "company type id")
	if err != nil {
		return CompanyType{}, err
	}
	if err := s.normalizeReferenceUpdate(&upd, actor, "company type"); err != nil {
		return CompanyType{}, err
	}
	return s.store.UpdateCompanyType(ctx, id, upd)
}

func (s *Service) DeleteCompanyType(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindCompanyType, ID: id}, actor.Document)
}

func (s *Service) CreateCountry(ctx context.Context, actor auth.Caller, in ReferenceInput) (Country, error) {
	id, name, statusID, f, err := s.createReference(ctx, actor, in, "country")
	if err != nil {
		return Country{}, err
	}
	c := Country{ID: id, Name: name, Description: strings.TrimSpace(in.Description), StatusID: statusID, Fields: f}
	if err := s.store.CreateCountry(ctx, &c); err != nil {
		return Country{}, err
	}
	return c, nil
}

func (s *Service) GetCountry(ctx context.Context, id string) (Country, error) {
	id, err := requireField(id, "country id")
	if err != nil {
		return Country{}, err
	}
	return s.store.FindCountry(ctx, id)
}

func (s *Service) ListCountries(ctx context.Context, includeInactive bool) ([]Country, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListCountries(ctx, statusID)
}

func (s *Service) UpdateCountry(ctx context.Context, actor auth.Caller, id string, upd ReferenceUpdate) (Country, error) {
	id, err := requireField(id, "country id")
	if err != nil {
		return Country{}, err
	}
	if err := s.normalizeReferenceUpdate(&upd, actor, "country"); err != nil {
		return Country{}, err
	}
	return s.store.UpdateCountry(ctx, id, upd)
}

func (s *Service) DeleteCountry(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindCountry, ID: id}, actor.Document)
}

func (s *Service) CreateDocumentType(ctx context.Context, actor auth.Caller, in ReferenceInput) (DocumentType, error) {
	id, name, statusID, f, err := s.createReference(ctx, actor, in, "document type")
	if err != nil {
		return DocumentType{}, err
	}
	dt := DocumentType{ID: id, Name: name, Description: strings.TrimSpace(in.Description), StatusID: statusID, Fields: f}
	if err := s.store.CreateDocumentType(ctx, &dt); err != nil {
		return DocumentType{}, err
	}
	return dt, nil
}

func (s *Service) GetDocumentType(ctx context.Context, id string) (DocumentType, error) {
	id, err := requireField(id, "document type id")
	if err != nil {
		return DocumentType{}, err
	}
	return s.store.FindDocumentType(ctx, id)
}

func (s *Service) ListDocumentTypes(ctx context.Context, includeInactive bool) ([]DocumentType, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListDocumentTypes(ctx, statusID)
}

func (s *Service) UpdateDocumentType(ctx context.Context, actor auth.Caller, id string, upd ReferenceUpdate) (DocumentType, error) {
	id, err := requireField(id, "document type id")
	if err != nil {
		return DocumentType{}, err
	}
	if err := s.normalizeReferenceUpdate(&upd, actor, "document type"); err != nil {
		return DocumentType{}, err
	}
	return s.store.UpdateDocumentType(ctx, id, upd)
}

func (s *Service) DeleteDocumentType(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindDocumentType, ID: id}, actor.Document)
}

func (s *Service) normalizeReferenceUpdate(upd *ReferenceUpdate, actor auth.Caller, what string) error {
	if upd.Name != nil {
		name, err := requireField(*upd.Name, what+" name")
		if err != nil {
			return err
		}
		upd.Name = &name
	}
	upd.ModifiedBy = actor.Document
	upd.ModifiedAt = s.stamper.Now()
	return nil
}

// Work sites

type WorkSiteInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CompanyID   string `json:"company_id"`
}

func (s *Service) CreateWorkSite(ctx context.Context, actor auth.Caller, in WorkSiteInput) (WorkSite, error) {
	name, err := requireField(in.Name, "work site name")
	if err != nil {
		return WorkSite{}, err
	}
	if err := refExists(s.store.FindCompany, ctx, in.CompanyID, "company"); err != nil {
		return WorkSite{}, err
	}
	statusID, err := s.activeStatusID(ctx)
	if err != nil {
		return WorkSite{}, err
	}
	ws := WorkSite{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CompanyID:   strings.TrimSpace(in.CompanyID),
		StatusID:    statusID,
	}
	s.stamper.StampCreate(&ws.Fields, actor.Document)
	if err := s.store.CreateWorkSite(ctx, &ws); err != nil {
		return WorkSite{}, err
	}
	return ws, nil
}

func (s *Service) GetWorkSite(ctx context.Context, id string) (WorkSite, error) {
	id, err := requireField(id, "work site id")
	if err != nil {
		return WorkSite{}, err
	}
	return s.store.FindWorkSite(ctx, id)
}

func (s *Service) ListWorkSites(ctx context.Context, includeInactive bool) ([]WorkSite, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListWorkSites(ctx, statusID)
}

func (s *Service) UpdateWorkSite(ctx context.Context, actor auth.Caller, id string, upd WorkSiteUpdate) (WorkSite, error) {
	id, err := requireField(id, "work site id")
	if err != nil {
		return WorkSite{}, err
	}
	if upd.Name != nil {
		name, err := requireField(*upd.Name, "work site name")
		if err != nil {
			return WorkSite{}, err
		}
		upd.Name = &name
	}
	if upd.CompanyID != nil {
		if err := refExists(s.store.FindCompany, ctx, *upd.CompanyID, "company"); err != nil {
			return WorkSite{}, err
		}
	}
	upd.ModifiedBy = actor.Document
	upd.ModifiedAt = s.stamper.Now()
	return s.store.UpdateWorkSite(ctx, id, upd)
}

func (s *Service) DeleteWorkSite(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindWorkSite, ID: id}, actor.Document)
}

// Roles and role links

type RoleInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) CreateRole(ctx context.Context, actor auth.Caller, in RoleInput) (auth.Role, error) {
	name, err := requireField(in.Name, "role name")
	if err != nil {
		return auth.Role{}, err
	}
	statusID, err := s.activeStatusID(ctx)
	if err != nil {
		return auth.Role{}, err
	}
	role := auth.Role{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		StatusID:    statusID,
	}
	s.stamper.StampCreate(&role.Fields, actor.Document)
	if err := s.store.CreateRole(ctx, &role); err != nil {
		return auth.Role{}, err
	}
	return role, nil
}

func (s *Service) GetRole(ctx context.Context, id string) (auth.Role, error) {
	id, err := requireField(id, "role id")
	if err != nil {
		return auth.Role{}, err
	}
	return s.store.FindRole(ctx, id)
}

func (s *Service) ListRoles(ctx context.Context, includeInactive bool) ([]auth.Role, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListRoles(ctx, statusID)
}

func (s *Service) UpdateRole(ctx context.Context, actor auth.Caller, id string, upd RoleUpdate) (auth.Role, error) {
	id, err := requireField(id, "role id")
	if err != nil {
		return auth.Role{}, err
	}
	if upd.Name != nil {
		name, err := requireField(*upd.Name, "role name")
		if err != nil {
			return auth.Role{}, err
		}
		upd.Name = &name
	}
	upd.ModifiedBy = actor.Document
	upd.ModifiedAt = s.stamper.Now()
	return s.store.UpdateRole(ctx, id, upd)
}

// DeleteRole retires the role together with every active caller link to it.
func (s *Service) DeleteRole(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindRole, ID: id}, actor.Document)
}

type RoleLinkInput struct {
	CallerID string `json:"caller_id"`
	RoleID   string `json:"role_id"`
}

func (s *Service) CreateRoleLink(ctx context.Context, actor auth.Caller, in RoleLinkInput) (auth.RoleLink, error) {
	if err := refExists(s.store.FindCaller, ctx, in.CallerID, "caller"); err != nil {
		return auth.RoleLink{}, err
	}
	if err := refExists(s.store.FindRole, ctx, in.RoleID, "role"); err != nil {
		return auth.RoleLink{}, err
	}
	statusID, err := s.activeStatusID(ctx)
	if err != nil {
		return auth.RoleLink{}, err
	}
	link := auth.RoleLink{
		ID:       ids.New(),
		CallerID: strings.TrimSpace(in.CallerID),
		RoleID:   strings.TrimSpace(in.RoleID),
		StatusID: statusID,
	}
	s.stamper.StampCreate(&link.Fields, actor.Document)
	if err := s.store.CreateRoleLink(ctx, &link); err != nil {
		return auth.RoleLink{}, err
	}
	return link, nil
}

func (s *Service) ListRoleLinks(ctx context.Context, callerID string, includeInactive bool) ([]auth.RoleLink, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListRoleLinks(ctx, strings.TrimSpace(callerID), statusID)
}

func (s *Service) DeleteRoleLink(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindRoleLink, ID: id}, actor.Document)
}

// Callers

type CallerInput struct {
	DocumentTypeID string `json:"document_type_id"`
	Document       string `json:"document"`
	Email          string `json:"email"`
	Names          string `json:"names"`
	Surnames       string `json:"surnames"`
	Phone          string `json:"phone"`
	Password       string `json:"password"`
	RoleID         string `json:"role_id"`
	CountryID      string `json:"country_id"`
	CompanyID      string `json:"company_id"`
}

// RegisterCaller creates a caller account with its initial role link. The
// account stamps itself: the new caller's own document is recorded as the
// registering actor.
func (s *Service) RegisterCaller(ctx context.Context, in CallerInput) (auth.Caller, error) {
	document, err := requireField(in.Document, "document")
	if err != nil {
		return auth.Caller{}, err
	}
	email, err := requireField(in.Email, "email")
	if err != nil {
		return auth.Caller{}, err
	}
	names, err := requireField(in.Names, "names")
	if err != nil {
		return auth.Caller{}, err
	}
	if err := refExists(s.store.FindDocumentType, ctx, in.DocumentTypeID, "document type"); err != nil {
		return auth.Caller{}, err
	}
	if err := refExists(s.store.FindRole, ctx, in.RoleID, "role"); err != nil {
		return auth.Caller{}, err
	}
	if err := refExists(s.store.FindCountry, ctx, in.CountryID, "country"); err != nil {
		return auth.Caller{}, err
	}
	if err := refExists(s.store.FindCompany, ctx, in.CompanyID, "company"); err != nil {
		return auth.Caller{}, err
	}
	if _, err := s.store.FindCallerByDocument(ctx, document); err == nil {
		return auth.Caller{}, fmt.Errorf("%w: document %q already registered", ErrConflict, document)
	} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, auth.ErrNotFound) {
		return auth.Caller{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return auth.Caller{}, err
	}
	statusID, err := s.activeStatusID(ctx)
	if err != nil {
		return auth.Caller{}, err
	}

	caller := auth.Caller{
		ID:             ids.New(),
		DocumentTypeID: strings.TrimSpace(in.DocumentTypeID),
		Document:       document,
		Email:          email,
		Names:          names,
		Surnames:       strings.TrimSpace(in.Surnames),
		Phone:          strings.TrimSpace(in.Phone),
		CompanyID:      strings.TrimSpace(in.CompanyID),
		CountryID:      strings.TrimSpace(in.CountryID),
		StatusID:       statusID,
		PasswordHash:   hash,
	}
	s.stamper.StampCreate(&caller.Fields, document)
	if err := s.store.CreateCaller(ctx, &caller); err != nil {
		return auth.Caller{}, err
	}

	link := auth.RoleLink{
		ID:       ids.New(),
		CallerID: caller.ID,
		RoleID:   strings.TrimSpace(in.RoleID),
		StatusID: statusID,
	}
	s.stamper.StampCreate(&link.Fields, document)
	if err := s.store.CreateRoleLink(ctx, &link); err != nil {
		return auth.Caller{}, err
	}
	caller.RoleIDs = []string{link.RoleID}

	audit.LogEvent(ctx, "caller.registered", map[string]any{"id": caller.ID, "document": document})
	return caller, nil
}

func (s *Service) GetCaller(ctx context.Context, id string) (auth.Caller, error) {
	id, err := requireField(id, "caller id")
	if err != nil {
		return auth.Caller{}, err
	}
	return s.store.FindCaller(ctx, id)
}

func (s *Service) ListCallers(ctx context.Context, includeInactive bool) ([]auth.Caller, error) {
	statusID := ""
	if !includeInactive {
		var err error
		if statusID, err = s.activeStatusID(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.ListCallers(ctx, statusID)
}

func (s *Service) UpdateCaller(ctx context.Context, actor auth.Caller, id string, upd CallerUpdate) (auth.Caller, error) {
	id, err := requireField(id, "caller id")
	if err != nil {
		return auth.Caller{}, err
	}
	if upd.CompanyID != nil {
		if err := refExists(s.store.FindCompany, ctx, *upd.CompanyID, "company"); err != nil {
			return auth.Caller{}, err
		}
	}
	if upd.CountryID != nil {
		if err := refExists(s.store.FindCountry, ctx, *upd.CountryID, "country"); err != nil {
			return auth.Caller{}, err
		}
	}
	upd.ModifiedBy = actor.Document
	upd.ModifiedAt = s.stamper.Now()
	return s.store.UpdateCaller(ctx, id, upd)
}

// DeleteCaller retires the account together with its active role links.
func (s *Service) DeleteCaller(ctx context.Context, actor auth.Caller, id string) error {
	return s.lifecycle.MarkInactive(ctx, Target{Kind: KindCaller, ID: id}, actor.Document)
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, actor auth.Caller, current, next string) error {
	caller, err := s.store.FindCaller(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(caller.PasswordHash, current) {
		return fmt.Errorf("%w: current password does not match", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.store.UpdateCallerPassword(ctx, caller.ID, hash, actor.Document, s.stamper.Now()); err != nil {
		return err
	}
	audit.LogEvent(ctx, "caller.password_changed", map[string]any{"id": caller.ID})
	return nil
}
