package httpapi

import (
	"errors"
	"net/http"
	"time"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/registry"
)

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func tokenBody(t auth.SignedToken) tokenResponse {
	return tokenResponse{Token: t.Token, ExpiresAt: t.ExpiresAt.Format(time.RFC3339)}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registry.CallerInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := a.registry.RegisterCaller(r.Context(), in)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	token, err := a.issuer.Issue(caller)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  caller,
		"token": tokenBody(token),
	})
}

type loginRequest struct {
	Document string `json:"document"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.Claims{Document: in.Document}
	caller, err := a.resolver.Resolve(r.Context(), &claims)
	if err != nil {
		if errors.Is(err, auth.ErrCallerNotFound) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		respondDomainError(w, r, err)
		return
	}
	if !auth.VerifyPassword(caller.PasswordHash, in.Password) {
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := a.issuer.Issue(caller)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "auth.login", map[string]any{"document": caller.Document})
	writeJSON(w, http.StatusOK, tokenBody(token))
}

// handleRenew re-issues a token off the still-valid bearer token. Claims are
// rebuilt from the current caller record, not copied from the old token.
func (a *API) handleRenew(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	renewed, err := a.issuer.Renew(r.Context(), token)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenBody(renewed))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var in changePasswordRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.registry.ChangePassword(r.Context(), caller, in.CurrentPassword, in.NewPassword); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// handleMe returns the caller's record with its role descriptions expanded.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	roles, err := a.aggregator.Describe(r.Context(), caller.RoleIDs)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  caller,
		"roles": roles,
	})
}
