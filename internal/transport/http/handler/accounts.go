package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/member-api/internal/application/account"
	"github.com/member-api/internal/application/registration"
	"github.com/member-api/internal/transport/http/middleware"
)

// AccountHandler handles signup, OTP verification and account endpoints.
type AccountHandler struct {
	reg  registration.Service
	acct account.Service
}

func NewAccountHandler(reg registration.Service, acct account.Service) *AccountHandler {
	return &AccountHandler{reg: reg, acct: acct}
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req registration.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email, err := h.reg.Signup(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SignupEnvelope{
		Email:   email,
		Message: "verification code sent",
	})
}

func (h *AccountHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req registration.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	acct, err := h.reg.VerifyOTP(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID {
		writeError(w, http.StatusForbidden, "cannot read another account")
		return
	}
	acct, err := h.acct.Get(r.Context(), targetID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID {
		writeError(w, http.StatusForbidden, "cannot deactivate another account")
		return
	}
	if err := h.acct.Deactivate(r.Context(), targetID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deactivated"})
}
