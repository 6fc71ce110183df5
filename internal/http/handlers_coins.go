package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"coinshelter/internal/auth"
	"coinshelter/internal/core"
	"coinshelter/internal/records"
)

var errConfirmRequired = errors.New("deletion requires confirm=true")

// shellErrorStatus maps shell mutation errors onto HTTP statuses. A
// sign-out can race a request past the session middleware, so the
// authorization error still maps to 401 here rather than 500.
func shellErrorStatus(err error) int {
	switch {
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrNotAuthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListCoins(w http.ResponseWriter, r *http.Request) {
	state, err := parseViewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	visible, _, _ := s.shell.View(state)
	writeJSON(w, http.StatusOK, toCoinListResponse(visible))
}

func (s *Server) handleGetCoin(w http.ResponseWriter, r *http.Request) {
	rec, err := s.shell.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toCoinResponse(rec))
}

func (s *Server) handleCreateCoin(w http.ResponseWriter, r *http.Request) {
	var payload coinPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	draft, err := payload.toDraft()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	rec, err := s.shell.Create(r.Context(), draft)
	if err != nil {
		status := shellErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Coin create failed", "error", err)
		}
		writeError(w, status, err)
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusCreated, toCoinResponse(rec))
}

func (s *Server) handleUpdateCoin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var payload coinPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	draft, err := payload.toDraft()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	rec, err := s.shell.Update(r.Context(), id, draft)
	if err != nil {
		status := shellErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Coin update failed", "error", err, "id", id)
		}
		writeError(w, status, err)
		return
	}

	s.invalidateViews()
	writeJSON(w, http.StatusOK, toCoinResponse(rec))
}

func (s *Server) handleDeleteCoin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Server-side stand-in for the client confirmation dialog.
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, errConfirmRequired)
		return
	}

	if err := s.shell.Delete(r.Context(), id); err != nil {
		status := shellErrorStatus(err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Coin delete failed", "error", err, "id", id)
		}
		writeError(w, status, err)
		return
	}

	s.invalidateViews()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	state, err := parseViewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	key := statsCacheKey(state)
	if cached, found := s.statsCache.Get(key); found {
		slog.DebugContext(r.Context(), "Stats cache hit", "key", key)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	_, snapshot, ok := s.shell.View(state)
	resp := toStatsResponse(snapshot, ok)

	s.statsCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func statsCacheKey(state core.ViewState) string {
	return fmt.Sprintf("%s|%s", state.Filter, state.Sort)
}
