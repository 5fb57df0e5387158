package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) dbPing(w http.ResponseWriter, r *http.Request) {
	one, err := s.services.Diagnostics.Ping(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true, "result": one})
}

func (s *HTTPServer) dbTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.services.Diagnostics.Tables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"tables": tables})
}

func (s *HTTPServer) upsertCredentials(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !models.IsKnownProvider(provider) {
		s.writeError(w, r, fmt.Errorf("provider %q: %w", provider, common.ErrorNotFound))
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: body too large or unreadable", common.ErrInvalidPayload))
		return
	}

	address, err := s.services.Credentials.Upsert(r.Context(), userIDFromContext(r.Context()), provider, raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true, "address": address})
}

func (s *HTTPServer) credentialStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Credentials.Status(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "provider"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := map[string]any{}
	for k, v := range status.Fields {
		resp[k] = v
	}
	resp["provider"] = status.Provider
	resp["has_secret"] = status.HasSecret
	resp["updated_at"] = status.UpdatedAt.UTC().Format(time.RFC3339)
	s.writeJSON(w, r, http.StatusOK, resp)
}

type credentialItem struct {
	Provider  string    `json:"provider"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *HTTPServer) listCredentials(w http.ResponseWriter, r *http.Request) {
	pointers, err := s.services.Credentials.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]credentialItem, 0, len(pointers))
	for _, p := range pointers {
		items = append(items, credentialItem{Provider: p.Provider, Address: p.SecretAddress, UpdatedAt: p.UpdatedAt})
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"credentials": items})
}

func (s *HTTPServer) createStrategy(w http.ResponseWriter, r *http.Request) {
	var spec models.StrategySpec
	if err := decodeBody(w, r, &spec); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", common.ErrInvalidStrategySpec, err))
		return
	}

	strategy, err := s.services.Strategies.Create(r.Context(), userIDFromContext(r.Context()), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"ok": true, "strategy_id": strategy.ID})
}

func (s *HTTPServer) listStrategies(w http.ResponseWriter, r *http.Request) {
	list, err := s.services.Strategies.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Strategy{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"strategies": list})
}

func (s *HTTPServer) putSettings(w http.ResponseWriter, r *http.Request) {
	var spec models.SettingsSpec
	if err := decodeBody(w, r, &spec); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", common.ErrInvalidPayload, err))
		return
	}

	row, err := s.services.Settings.Put(r.Context(), userIDFromContext(r.Context()), spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, row)
}

// getSettings renders an empty object when the user has none yet.
func (s *HTTPServer) getSettings(w http.ResponseWriter, r *http.Request) {
	row, err := s.services.Settings.Get(r.Context(), userIDFromContext(r.Context()))
	if errors.Is(err, common.ErrorNotFound) {
		s.writeJSON(w, r, http.StatusOK, map[string]any{})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, row)
}

var errMalformedBody = errors.New("malformed JSON body")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errMalformedBody
	}
	return nil
}
