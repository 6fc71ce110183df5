package http

import (
	"errors"
	"log/slog"
	"net/http"

	"coinshelter/internal/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, pending, err := s.provider.SignUp(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		writeError(w, authErrorStatus(err), err)
		return
	}

	if pending {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "confirmation_pending",
		})
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Token:  session.Token,
		UserID: session.UserID,
		Email:  session.Email,
		Name:   session.Name,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := s.provider.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		slog.WarnContext(r.Context(), "Sign in failed", "error", err)
		writeError(w, authErrorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token:  session.Token,
		UserID: session.UserID,
		Email:  session.Email,
		Name:   session.Name,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.provider.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// authErrorStatus maps provider errors onto HTTP statuses. The error
// text itself passes through unchanged.
func authErrorStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrNotConfirmed):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
