package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

func includeInactive(r *http.Request) bool {
	return r.URL.Query().Get("include_inactive") == "true"
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanies, auth.OpQuery) {
		return
	}
	companies, err := a.registry.ListCompanies(r.Context(), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (a *API) createCompany(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanies, auth.OpCreate) {
		return
	}
	var in registry.CompanyInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	company, err := a.registry.CreateCompany(r.Context(), caller, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCreated(w, ViewCompanies, company.ID, company)
}

type companyUpdateRequest struct {
	DocumentTypeID *string `json:"document_type_id"`
	Document       *string `json:"document"`
	CheckDigit     *string `json:"check_digit"`
	CompanyTypeID  *string `json:"company_type_id"`
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	MinistryID     *string `json:"ministry_id"`
}

func (a *API) updateCompany(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanies, auth.OpUpdate) {
		return
	}
	var in companyUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	company, err := a.registry.UpdateCompany(r.Context(), caller, pathID(r), registry.CompanyUpdate{
		DocumentTypeID: in.DocumentTypeID,
		Document:       in.Document,
		CheckDigit:     in.CheckDigit,
		CompanyTypeID:  in.CompanyTypeID,
		Name:           in.Name,
		Description:    in.Description,
		MinistryID:     in.MinistryID,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (a *API) deleteCompany(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanies, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteCompany(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
