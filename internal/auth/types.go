// Package auth covers caller identity, token issuance and the per-view
// permission gate.
package auth

import (
	"registra.org/internal/audit"
)

// Caller is the authenticated actor behind a request, resolved from verified
// token claims by document number.
type Caller struct {
	ID             string   `json:"id"`
	DocumentTypeID string   `json:"document_type_id"`
	Document       string   `json:"document"`
	Email          string   `json:"email"`
	Names          string   `json:"names"`
	Surnames       string   `json:"surnames"`
	Phone          string   `json:"phone,omitempty"`
	CompanyID      string   `json:"company_id"`
	CountryID      string   `json:"country_id"`
	StatusID       string   `json:"status_id"`
	RoleIDs        []string `json:"role_ids"`
	PasswordHash   string   `json:"-"`
	audit.Fields
}

type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StatusID    string `json:"status_id"`
	audit.Fields
}

// RoleLink ties one caller to one role. Links carry their own lifecycle
// status so a caller's role assignment can be retired independently.
type RoleLink struct {
	ID       string `json:"id"`
	CallerID string `json:"caller_id"`
	RoleID   string `json:"role_id"`
	StatusID string `json:"status_id"`
	audit.Fields
}
