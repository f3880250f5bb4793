// Package registry implements the registration catalog: companies, work
// sites, reference tables, roles and callers, all with soft-delete lifecycle.
package registry

import (
	"errors"
	"time"

	"registra.org/internal/audit"
)

// Kind names one entity family a lifecycle transition can touch.
type Kind string

const (
	KindCompany      Kind = "company"
	KindCompanyType  Kind = "company_type"
	KindCountry      Kind = "country"
	KindDocumentType Kind = "document_type"
	KindWorkSite     Kind = "work_site"
	KindRole         Kind = "role"
	KindRoleLink     Kind = "role_link"
	KindCaller       Kind = "caller"
)

// Target identifies one row a lifecycle transition applies to.
type Target struct {
	Kind Kind
	ID   string
}

var (
	ErrNotFound     = errors.New("registry: not found")
	ErrConflict     = errors.New("registry: resource conflict")
	ErrInvalidInput = errors.New("registry: invalid input")
)

type Company struct {
	ID             string `json:"id"`
	DocumentTypeID string `json:"document_type_id"`
	Document       string `json:"document"`
	CheckDigit     string `json:"check_digit,omitempty"`
	CompanyTypeID  string `json:"company_type_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	MinistryID     string `json:"ministry_id,omitempty"`
	StatusID       string `json:"status_id"`
	audit.Fields
}

type CompanyType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StatusID    string `json:"status_id"`
	audit.Fields
}

type Country struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StatusID    string `json:"status_id"`
	audit.Fields
}

type DocumentType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StatusID    string `json:"status_id"`
	audit.Fields
}

type WorkSite struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CompanyID   string `json:"company_id"`
	StatusID    string `json:"status_id"`
	audit.Fields
}

// Update structs use pointer fields: nil means leave the column unchanged.
// ModifiedBy and ModifiedAt are filled by the service, never by callers.

type CompanyUpdate struct {
	DocumentTypeID *string
	Document       *string
	CheckDigit     *string
	CompanyTypeID  *string
	Name           *string
	Description    *string
	MinistryID     *string

	ModifiedBy string
	ModifiedAt time.Time
}

// ReferenceUpdate serves the three flat reference tables: company types,
// countries and document types.
type ReferenceUpdate struct {
	Name        *string
	Description *string

	ModifiedBy string
	ModifiedAt time.Time
}

type WorkSiteUpdate struct {
	Name        *string
	Description *string
	CompanyID   *string

	ModifiedBy string
	ModifiedAt time.Time
}

type RoleUpdate struct {
	Name        *string
	Description *string

	ModifiedBy string
	ModifiedAt time.Time
}

type CallerUpdate struct {
	Email     *string
	Names     *string
	Surnames  *string
	Phone     *string
	CompanyID *string
	CountryID *string

	ModifiedBy string
	ModifiedAt time.Time
}
