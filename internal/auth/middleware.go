package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so nothing else can read
// or shadow the values stored under it.
type contextKey string

const userKey contextKey = "user"

// UserLookup is the slice of the user directory the middleware needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the session token from "Authorization: Bearer <token>", validates
// it, loads the user it names and stores the *model.User in the request
// context. If the header is missing, the token is invalid or expired, or the
// user no longer exists, it returns 401 and the handler never runs.
//
// The user is loaded fresh on every request; nothing is cached between
// requests.
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "authentication required")
				return
			}

			userID, err := tokens.Validate(tokenStr)
			if err != nil {
				logger.Debug("rejected session token", slog.String("error", err.Error()))
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					writeUnauthorized(w, "user no longer exists")
					return
				}
				logger.Error("loading authenticated user",
					slog.String("userID", userID),
					slog.String("error", err.Error()),
				)
				writeAuthError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Returns (nil, false) outside a RequireAuth-protected route.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// WithUser returns a context carrying user, as RequireAuth does. Handler
// tests use it to call protected handlers directly.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeAuthError(w, http.StatusUnauthorized, "unauthorized", message)
}

// writeAuthError writes the {"error","message"} body used by every API error.
func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + kind + `","message":"` + message + `"}`))
}
