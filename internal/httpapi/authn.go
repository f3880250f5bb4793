package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
)

// publicPaths skip bearer authentication entirely.
var publicPaths = map[string]struct{}{
	"/healthz":           {},
	"/readyz":            {},
	"/metrics":           {},
	"/v1/info":           {},
	"/api/user/register": {},
	"/api/user/login":    {},
}

// withAuth validates the bearer token, resolves the caller it names and
// stores both on the request context. Routes below this middleware always
// have an explicit caller available.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token = strings.TrimSpace(token)

		claims, err := a.issuer.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		caller, err := a.resolver.Resolve(r.Context(), claims)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}

		ctx := auth.ContextWithCaller(r.Context(), caller)
		ctx = auth.ContextWithToken(ctx, token)
		ctx = audit.WithActor(ctx, caller.Document)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCaller fetches the caller placed by withAuth; absence means a wiring
// bug, answered with the generic failure.
func requireCaller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusInternalServerError, genericFailure)
		return auth.Caller{}, false
	}
	return caller, true
}

// ensurePermission runs the gate for (caller, view, op) and answers the
// request itself on deny. Denials are logged at info with full context.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, caller auth.Caller, view string, op auth.Operation) bool {
	err := a.gate.Authorize(r.Context(), caller.ID, view, op)
	if err == nil {
		return true
	}
	if errors.Is(err, auth.ErrPermissionDenied) {
		audit.LogEvent(r.Context(), "permission.denied", map[string]any{
			"caller_id": caller.ID,
			"view":      view,
			"operation": op.String(),
		})
	}
	respondDomainError(w, r, err)
	return false
}
