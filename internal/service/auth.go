// AuthService turns a verified Google identity into a local user and a
// session token:
//
//	AuthHandler (HTTP) → AuthService → IdentityVerifier / CodeExchanger (Google)
//	                                 ↘ UserRepository (DB)
//	                                 ↘ TokenService (JWT)
//
// A credential that fails verification never reaches the repository, so bad
// logins leave no state behind.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/auth"
	"github.com/sumo47/exam-prep-back/internal/model"
	"github.com/sumo47/exam-prep-back/internal/repository"
)

// CodeExchanger trades an OAuth authorization code for a verified identity.
// *auth.GoogleProvider implements it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*auth.Identity, error)
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users     repository.UserRepository → read/write user records
//   - verifier  auth.IdentityVerifier     → checks Google ID tokens
//   - exchanger CodeExchanger             → optional, nil disables code login
//   - tokens    *auth.TokenService        → issues session JWTs
//   - logger    *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	verifier  auth.IdentityVerifier
	exchanger CodeExchanger
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. exchanger may be nil.
func NewAuthService(
	users repository.UserRepository,
	verifier auth.IdentityVerifier,
	exchanger CodeExchanger,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		verifier:  verifier,
		exchanger: exchanger,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// handler can respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// CodeLoginEnabled reports whether LoginWithCode can succeed.
func (s *AuthService) CodeLoginEnabled() bool {
	return s.exchanger != nil
}

// LoginWithCredential verifies a Google ID token and signs the user in,
// registering them on first login.
func (s *AuthService) LoginWithCredential(ctx context.Context, credential string) (*AuthResult, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, apperror.ValidationFailed("credential", "credential is required")
	}

	identity, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		s.logVerifyFailure("credential", err)
		return nil, err
	}
	return s.login(ctx, identity)
}

// LoginWithCode exchanges a Google authorization code and signs the user in.
func (s *AuthService) LoginWithCode(ctx context.Context, code string) (*AuthResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}
	if s.exchanger == nil {
		return nil, apperror.ValidationFailed("code", "authorization code login is not enabled")
	}

	identity, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		s.logVerifyFailure("code", err)
		return nil, err
	}
	return s.login(ctx, identity)
}

// login finds or creates the user for identity and issues a session token.
//
// On a repeat login only the provider-sourced fields (name, picture) are
// refreshed. Bio, location and education belong to the user.
func (s *AuthService) login(ctx context.Context, identity *auth.Identity) (*AuthResult, error) {
	user, err := s.users.GetUserByGoogleID(ctx, identity.Subject)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.register(ctx, identity)
		if err != nil {
			return nil, err
		}

	case err != nil:
		return nil, fmt.Errorf("service/auth: finding user (googleID=%s): %w", identity.Subject, err)

	default:
		if user.Name != identity.Name || user.Picture != identity.Picture {
			user, err = s.users.RefreshIdentity(ctx, user.ID, identity.Name, identity.Picture)
			if err != nil {
				return nil, fmt.Errorf("service/auth: refreshing user %s: %w", identity.Subject, err)
			}
		}
		s.logger.Info("user signed in", slog.String("userID", user.ID))
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) register(ctx context.Context, identity *auth.Identity) (*model.User, error) {
	user := &model.User{
		GoogleID: identity.Subject,
		Email:    identity.Email,
		Name:     identity.Name,
		Picture:  identity.Picture,
	}

	err := s.users.CreateUser(ctx, user)
	if err == nil {
		s.logger.Info("user registered",
			slog.String("userID", user.ID),
			slog.String("email", user.Email),
		)
		return user, nil
	}

	// Two first logins for the same account can race; the loser of the
	// INSERT picks up the row the winner wrote.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrConflict) && appErr.Field == "googleId" {
		existing, getErr := s.users.GetUserByGoogleID(ctx, identity.Subject)
		if getErr == nil {
			return existing, nil
		}
	}
	if errors.Is(err, apperror.ErrConflict) {
		return nil, err
	}
	return nil, fmt.Errorf("service/auth: creating user (googleID=%s): %w", identity.Subject, err)
}

// logVerifyFailure logs rejected credentials at Info and provider outages at
// Error. Neither is a bug in this service.
func (s *AuthService) logVerifyFailure(kind string, err error) {
	if errors.Is(err, apperror.ErrUpstream) {
		s.logger.Error("identity provider unavailable",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("login rejected",
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}
