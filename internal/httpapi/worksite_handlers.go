package httpapi

import (
	"net/http"

	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

func (a *API) listWorkSites(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewWorkSites, auth.OpQuery) {
		return
	}
	out, err := a.registry.ListWorkSites(r.Context(), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createWorkSite(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewWorkSites, auth.OpCreate) {
		return
	}
	var in registry.WorkSiteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	ws, err := a.registry.CreateWorkSite(r.Context(), caller, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCreated(w, ViewWorkSites, ws.ID, ws)
}

type workSiteUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	CompanyID   *string `json:"company_id"`
}

func (a *API) updateWorkSite(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewWorkSites, auth.OpUpdate) {
		return
	}
	var in workSiteUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	ws, err := a.registry.UpdateWorkSite(r.Context(), caller, pathID(r), registry.WorkSiteUpdate{
		Name:        in.Name,
		Description: in.Description,
		CompanyID:   in.CompanyID,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (a *API) deleteWorkSite(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewWorkSites, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteWorkSite(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
