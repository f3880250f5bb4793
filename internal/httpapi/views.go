package httpapi

// View identifiers are declared once and bound to routes at registration
// time. Permission rows reference these exact strings; all operations of one
// resource share its view root, including the item routes under it.
const (
	ViewCompanies     = "/api/companies"
	ViewCompanyTypes  = "/api/company-types"
	ViewCountries     = "/api/countries"
	ViewDocumentTypes = "/api/document-types"
	ViewWorkSites     = "/api/work-sites"
	ViewRoles         = "/api/roles"
	ViewUserRoles     = "/api/user-roles"
	ViewUsers         = "/api/users"
	ViewStatus        = "/api/status"
)
