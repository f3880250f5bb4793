package registry

import (
	"context"
	"time"

	"registra.org/internal/auth"
)

// Store is the persistence surface the registry service runs on. An empty
// statusID on a List call means no status filter.
type Store interface {
	CreateCompany(ctx context.Context, c *Company) error
	FindCompany(ctx context.Context, id string) (Company, error)
	ListCompanies(ctx context.Context, statusID string) ([]Company, error)
	UpdateCompany(ctx context.Context, id string, upd CompanyUpdate) (Company, error)

	CreateCompanyType(ctx context.Context, ct *CompanyType) error
	FindCompanyType(ctx context.Context, id string) (CompanyType, error)
	ListCompanyTypes(ctx context.Context, statusID string) ([]CompanyType, error)
	UpdateCompanyType(ctx context.Context, id string, upd ReferenceUpdate) (CompanyType, error)

	CreateCountry(ctx context.Context, c *Country) error
	FindCountry(ctx context.Context, id string) (Country, error)
	ListCountries(ctx context.Context, statusID string) ([]Country, error)
	UpdateCountry(ctx context.Context, id string, upd ReferenceUpdate) (Country, error)

	CreateDocumentType(ctx context.Context, dt *DocumentType) error
	FindDocumentType(ctx context.Context, id string) (DocumentType, error)
	ListDocumentTypes(ctx context.Context, statusID string) ([]DocumentType, error)
	UpdateDocumentType(ctx context.Context, id string, upd ReferenceUpdate) (DocumentType, error)

	CreateWorkSite(ctx context.Context, ws *WorkSite) error
	FindWorkSite(ctx context.Context, id string) (WorkSite, error)
	ListWorkSites(ctx context.Context, statusID string) ([]WorkSite, error)
	UpdateWorkSite(ctx context.Context, id string, upd WorkSiteUpdate) (WorkSite, error)

	CreateRole(ctx context.Context, r *auth.Role) error
	FindRole(ctx context.Context, id string) (auth.Role, error)
	ListRoles(ctx context.Context, statusID string) ([]auth.Role, error)
	UpdateRole(ctx context.Context, id string, upd RoleUpdate) (auth.Role, error)

	CreateRoleLink(ctx context.Context, link *auth.RoleLink) error
	FindRoleLink(ctx context.Context, id string) (auth.RoleLink, error)
	ListRoleLinks(ctx context.Context, callerID, statusID string) ([]auth.RoleLink, error)
	LinksForRole(ctx context.Context, roleID, statusID string) ([]auth.RoleLink, error)
	LinksForCaller(ctx context.Context, callerID, statusID string) ([]auth.RoleLink, error)

	CreateCaller(ctx context.Context, c *auth.Caller) error
	FindCaller(ctx context.Context, id string) (auth.Caller, error)
	FindCallerByDocument(ctx context.Context, document string) (auth.Caller, error)
	ListCallers(ctx context.Context, statusID string) ([]auth.Caller, error)
	UpdateCaller(ctx context.Context, id string, upd CallerUpdate) (auth.Caller, error)
	UpdateCallerPassword(ctx context.Context, id, hash string, modifiedBy string, modifiedAt time.Time) error

	// MarkInactive flips every target to statusID inside one transaction.
	// The first target is the primary: zero rows affected for it means
	// ErrNotFound and nothing is committed. Dependent targets that match
	// zero rows are tolerated.
	MarkInactive(ctx context.Context, targets []Target, statusID, modifiedBy string, modifiedAt time.Time) error
}
