package httpapi

import (
	"net/http"

	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

type referenceUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (in referenceUpdateRequest) toUpdate() registry.ReferenceUpdate {
	return registry.ReferenceUpdate{Name: in.Name, Description: in.Description}
}

// Company types

func (a *API) listCompanyTypes(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanyTypes, auth.OpQuery) {
		return
	}
	out, err := a.registry.ListCompanyTypes(r.Context(), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createCompanyType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanyTypes, auth.OpCreate) {
		return
	}
	var in registry.ReferenceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	ct, err := a.registry.CreateCompanyType(r.Context(), caller, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCreated(w, ViewCompanyTypes, ct.ID, ct)
}

func (a *API) updateCompanyType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanyTypes, auth.OpUpdate) {
		return
	}
	var in referenceUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	ct, err := a.registry.UpdateCompanyType(r.Context(), caller, pathID(r), in.toUpdate())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (a *API) deleteCompanyType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCompanyTypes, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteCompanyType(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Countries

func (a *API) listCountries(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCountries, auth.OpQuery) {
		return
	}
	out, err := a.registry.ListCountries(r.Context(), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createCountry(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCountries, auth.OpCreate) {
		return
	}
	var in registry.ReferenceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := a.registry.CreateCountry(r.Context(), caller, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCreated(w, ViewCountries, c.ID, c)
}

func (a *API) updateCountry(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCountries, auth.OpUpdate) {
		return
	}
	var in referenceUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := a.registry.UpdateCountry(r.Context(), caller, pathID(r), in.toUpdate())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *API) deleteCountry(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewCountries, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteCountry(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Document types

func (a *API) listDocumentTypes(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewDocumentTypes, auth.OpQuery) {
		return
	}
	out, err := a.registry.ListDocumentTypes(r.Context(), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createDocumentType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewDocumentTypes, auth.OpCreate) {
		return
	}
	var in registry.ReferenceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	dt, err := a.registry.CreateDocumentType(r.Context(), caller, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCreated(w, ViewDocumentTypes, dt.ID, dt)
}

func (a *API) updateDocumentType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewDocumentTypes, auth.OpUpdate) {
		return
	}
	var in referenceUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	dt, err := a.registry.UpdateDocumentType(r.Context(), caller, pathID(r), in.toUpdate())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dt)
}

func (a *API) deleteDocumentType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewDocumentTypes, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteDocumentType(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Statuses are a read-only catalog over the API.

func (a *API) listStatuses(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewStatus, auth.OpQuery) {
		return
	}
	out, err := a.statuses.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
