package httpapi

import (
	"net/http"

	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewUsers, auth.OpQuery) {
		return
	}
	out, err := a.registry.ListCallers(r.Context(), includeInactive(r))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type userUpdateRequest struct {
	Email     *string `json:"email"`
	Names     *string `json:"names"`
	Surnames  *string `json:"surnames"`
	Phone     *string `json:"phone"`
	CompanyID *string `json:"company_id"`
	CountryID *string `json:"country_id"`
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewUsers, auth.OpUpdate) {
		return
	}
	var in userUpdateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := a.registry.UpdateCaller(r.Context(), caller, pathID(r), registry.CallerUpdate{
		Email:     in.Email,
		Names:     in.Names,
		Surnames:  in.Surnames,
		Phone:     in.Phone,
		CompanyID: in.CompanyID,
		CountryID: in.CountryID,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// deleteUser retires the account and its active role links together.
func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok || !a.ensurePermission(w, r, caller, ViewUsers, auth.OpDelete) {
		return
	}
	if err := a.registry.DeleteCaller(r.Context(), caller, pathID(r)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
