package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/model"
	"github.com/sumo47/exam-prep-back/internal/repository"
)

const (
	MaxNameLength      = 100
	MaxBioLength       = 1000
	MaxLocationLength  = 200
	MaxEducationLength = 200
)

// UserService serves public profiles and lets users edit their own.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// GetProfile returns the user with the given ID.
func (s *UserService) GetProfile(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// UpdateProfile applies upd to the profile of targetID on behalf of
// requester.
//
// Only the owner may edit a profile: anyone else gets apperror.ErrForbidden
// and nothing is written. Fields absent from upd are left as they are.
func (s *UserService) UpdateProfile(ctx context.Context, requester *model.User, targetID string, upd model.ProfileUpdate) (*model.User, error) {
	if requester == nil || requester.ID != targetID {
		return nil, apperror.Forbidden("not authorized to update this profile")
	}

	upd, err := normalizeProfile(upd)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateProfile(ctx, targetID, upd)
	if err != nil {
		s.logger.Error("failed to update profile",
			slog.String("userID", targetID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating profile %s: %w", targetID, err)
	}

	if !upd.IsEmpty() {
		s.logger.Info("profile updated", slog.String("userID", targetID))
	}
	return user, nil
}

// normalizeProfile trims every present field and checks its length. A
// present name must not be blank; the other fields may be cleared.
func normalizeProfile(upd model.ProfileUpdate) (model.ProfileUpdate, error) {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	upd.Name = trim(upd.Name)
	upd.Bio = trim(upd.Bio)
	upd.Location = trim(upd.Location)
	upd.Education = trim(upd.Education)
	upd.Picture = trim(upd.Picture)

	if upd.Name != nil {
		if err := requireText("name", *upd.Name, MaxNameLength); err != nil {
			return upd, err
		}
	}
	checks := []struct {
		field string
		value *string
		max   int
	}{
		{"bio", upd.Bio, MaxBioLength},
		{"location", upd.Location, MaxLocationLength},
		{"education", upd.Education, MaxEducationLength},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if err := maxLength(c.field, *c.value, c.max); err != nil {
			return upd, err
		}
	}
	return upd, nil
}
