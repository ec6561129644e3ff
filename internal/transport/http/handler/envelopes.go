package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/member-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	Bearer  string          `json:"Bearer,omitempty"`
	Account *domain.Account `json:"account,omitempty"`
	Profile *domain.Profile `json:"profile,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SignupEnvelope wraps registration responses.
type SignupEnvelope struct {
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateIdentity), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrThrottled):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrNotificationFailure):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, domain.ErrInvalidOTP), errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotVerified), errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	}
	writeError(w, status, err.Error())
}
