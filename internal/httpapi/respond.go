package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/obs"
	"registra.org/internal/registry"
	"registra.org/internal/status"
)

// genericFailure is the only message an internal fault ever surfaces.
const genericFailure = "contact the system administrator"

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obs.Logger().WithError(err).Error("encode response")
	}
}

// writeCreated answers 201 with a Location header under the view root.
func writeCreated(w http.ResponseWriter, view, id string, v any) {
	w.Header().Set("Location", view+"/"+id)
	writeJSON(w, http.StatusCreated, v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResponse{
		Error:     msg,
		RequestID: audit.RequestIDFromContext(r.Context()),
	})
}

// decodeJSON rejects unknown fields and trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// respondDomainError maps domain sentinels to status codes. Internal detail
// never crosses the boundary; unexpected failures log and answer generically.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrConflict):
		writeError(w, r, http.StatusConflict, "resource conflict")
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, auth.ErrCallerNotFound),
		errors.Is(err, status.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case errors.Is(err, auth.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "operation not permitted")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, status.ErrCatalogCorrupt):
		obs.Logger().WithError(err).
			WithField("request_id", audit.RequestIDFromContext(r.Context())).
			Error("status catalog corrupt")
		writeError(w, r, http.StatusInternalServerError, genericFailure)
	default:
		obs.Logger().WithError(err).
			WithField("request_id", audit.RequestIDFromContext(r.Context())).
			WithField("path", r.URL.Path).
			Error("unhandled error")
		writeError(w, r, http.StatusInternalServerError, genericFailure)
	}
}
