package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/member-api/internal/application/login"
	"github.com/member-api/internal/domain"
)

// SessionHandler handles login endpoints.
type SessionHandler struct {
	svc login.Service
}

func NewSessionHandler(svc login.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req login.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		// An unknown email and a wrong password get the same answer so the
		// endpoint cannot be used to probe which emails are registered.
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Bearer:  result.Bearer,
		Account: result.Account,
		Profile: result.Profile,
	})
}
