package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/member-api/internal/application/profile"
	"github.com/member-api/internal/domain"
	"github.com/member-api/internal/transport/http/middleware"
)

// ProfileHandler handles profile CRUD and picture upload endpoints.
type ProfileHandler struct {
	svc profile.Service
}

func NewProfileHandler(svc profile.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// ownAccountID checks the caller is acting on their own account and returns it.
func ownAccountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	targetID := chi.URLParam(r, "id")
	if claims.AccountID != targetID {
		writeError(w, http.StatusForbidden, "cannot act on another account's profile")
		return "", false
	}
	return targetID, true
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ownAccountID(w, r)
	if !ok {
		return
	}
	var req domain.CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Create(r.Context(), accountID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ownAccountID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), accountID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ownAccountID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Update(r.Context(), accountID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UploadPictureRequest carries a base64-encoded image payload.
type UploadPictureRequest struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

func (h *ProfileHandler) UploadPicture(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ownAccountID(w, r)
	if !ok {
		return
	}
	var req UploadPictureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filename == "" || req.Data == "" {
		writeError(w, http.StatusBadRequest, "filename and data required")
		return
	}
	p, err := h.svc.UploadPicture(r.Context(), accountID, req.Filename, req.Data)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
