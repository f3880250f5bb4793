package httpapi

import (
	"net/http"

	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

func (a *API) listRoles(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewRoles, auth.OpQuery) {
		return
	}
	out, err := a.registry.ListRoles(r.Context(), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewRoles, auth.OpCreate) {
		return
	}
	var in registry.RoleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := a.registry.CreateRole(r.Context(), caller, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCreated(w, ViewRoles, role.ID, role)
}

type roleUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (a *API) updateRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewRoles, auth.OpUpdate) {
		return
	}
	var in roleUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := a.registry.UpdateRole(r.Context(), caller, pathID(r), registry.RoleUpdate{
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// deleteRole retires the role and every active link pointing at it, in one
// transaction.
func (a *API) deleteRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewRoles, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteRole(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Role links

func (a *API) listRoleLinks(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewUserRoles, auth.OpQuery) {
		return
	}
	out, err := a.registry.ListRoleLinks(r.Context(), r.URL.Query().Get("caller_id"), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) createRoleLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewUserRoles, auth.OpCreate) {
		return
	}
	var in registry.RoleLinkInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	link, err := a.registry.CreateRoleLink(r.Context(), caller, in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeCreated(w, ViewUserRoles, link.ID, link)
}

func (a *API) deleteRoleLink(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewUserRoles, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteRoleLink(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
