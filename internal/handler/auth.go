package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/auth"
	"github.com/sumo47/exam-prep-back/internal/service"
)

// LoginService is what AuthHandler needs from service.AuthService.
type LoginService interface {
	LoginWithCredential(ctx context.Context, credential string) (*service.AuthResult, error)
	LoginWithCode(ctx context.Context, code string) (*service.AuthResult, error)
}

// AuthHandler manages Google sign-in and the current-user endpoint.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGoogle → verify a Google credential (or code), return a session token
//   - HandleMe     → return the user the bearer token resolves to
//
// The session token goes back in the JSON body; the frontend sends it as
// "Authorization: Bearer <token>" on later requests. No cookies are set.
type AuthHandler struct {
	logins LoginService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(logins LoginService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		logins: logins,
		logger: logger,
	}
}

type googleLoginRequest struct {
	Credential string `json:"credential"` // ID token from Google Identity Services
	Code       string `json:"code"`       // authorization code from the popup code flow
}

// HandleGoogle signs a user in with Google.
//
// HTTP: POST /api/auth/google
// REQUEST BODY: {"credential": "<Google ID token>"} or {"code": "<auth code>"}
//
// STATUS CODES:
//   - 200: signed in, body is {"token": ..., "user": {...}}
//   - 400: neither credential nor code was sent
//   - 401: Google rejected the credential
//   - 502: Google could not be reached to check it
func (h *AuthHandler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var (
		result *service.AuthResult
		err    error
	)
	switch {
	case req.Credential != "":
		result, err = h.logins.LoginWithCredential(r.Context(), req.Credential)
	case req.Code != "":
		result, err = h.logins.LoginWithCode(r.Context(), req.Code)
	default:
		err = apperror.ValidationFailed("credential", "credential or code is required")
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  newUserResponse(result.User),
	})
}

// HandleMe returns the currently authenticated user.
//
// HTTP: GET /api/auth/me
// Auth: Required (RequireAuth has already loaded the user into the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// Only reachable if the route was registered without RequireAuth.
		h.logger.Error("HandleMe: no user in context")
		writeError(w, apperror.Unauthorized("authentication required", nil))
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}
