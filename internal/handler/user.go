package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sumo47/exam-prep-back/internal/model"
)

// ProfileService is what UserHandler needs from service.UserService.
type ProfileService interface {
	GetProfile(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, requester *model.User, targetID string, upd model.ProfileUpdate) (*model.User, error)
}

// UserHandler serves public profiles.
type UserHandler struct {
	profiles ProfileService
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(profiles ProfileService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// HandleGet returns a user's public profile.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(user))
}

// HandleUpdate edits the caller's own profile.
//
// HTTP: PUT /api/users/{id}
// Auth: Required, and {id} must be the caller (403 otherwise)
// REQUEST BODY: any subset of {"name","bio","location","education","picture"}
//
// Fields left out of the body keep their current value; "" clears a field.
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	requester, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var upd model.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), requester, chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(user))
}
