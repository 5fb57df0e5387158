package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/bitcor/internal/common"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	OK    bool      `json:"ok"`
	Error errorBody `json:"error"`
}

type errorMapping struct {
	err    error
	status int
	kind   string
	// public replaces the error text for server-side failures.
	public string
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{common.ErrInvalidIdentity, http.StatusBadRequest, "InvalidIdentity", ""},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "Unauthorized", ""},
	{common.ErrIdentityUnavailable, http.StatusServiceUnavailable, "IdentityUnavailable", "identity store unavailable"},
	{common.ErrInvalidStrategySpec, http.StatusBadRequest, "InvalidStrategySpec", ""},
	{common.ErrInvalidPayload, http.StatusBadRequest, "InvalidPayload", ""},
	{common.ErrConstraintViolation, http.StatusBadRequest, "ConstraintViolation", ""},
	{common.ErrorNotFound, http.StatusNotFound, "NotFound", ""},
	{common.ErrVaultUnavailable, http.StatusServiceUnavailable, "VaultUnavailable", "secret vault unavailable"},
	{common.ErrStoreUnavailable, http.StatusServiceUnavailable, "StoreUnavailable", "store unavailable"},
}

func classify(err error) (int, errorBody) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			msg := m.public
			if msg == "" {
				msg = err.Error()
			}
			return m.status, errorBody{Kind: m.kind, Message: msg}
		}
	}
	return http.StatusInternalServerError, errorBody{Kind: "Internal", Message: "internal error"}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "kind", body.Kind, "error", err, "request_id", requestIDFromContext(r.Context()))
	} else {
		s.logger.Debug(r.Context(), "request rejected", "kind", body.Kind, "error", err, "request_id", requestIDFromContext(r.Context()))
	}
	s.writeJSON(w, r, status, errorResponse{OK: false, Error: body})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), "write response", "error", err)
	}
}
