// Package repository declares the storage interfaces the services depend on.
// repository/sqlite is the production implementation; service tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sumo47/exam-prep-back/internal/model"
)

// UserRepository is the user directory.
type UserRepository interface {
	// CreateUser inserts a new user and fills in ID and timestamps.
	// Returns apperror.ErrConflict if the Google ID or email is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	// RefreshIdentity overwrites only the provider-sourced fields
	// (name and picture) of an existing user.
	RefreshIdentity(ctx context.Context, id, name, picture string) (*model.User, error)
	// UpdateProfile applies the fields present in upd and returns the
	// resulting record.
	UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.User, error)
}

// VoteTarget names the table whose vote counter IncrementVotes changes.
type VoteTarget string

const (
	VoteQuestion VoteTarget = "question"
	VoteAnswer   VoteTarget = "answer"
)

// QuestionRepository stores questions and answers.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	GetQuestionByID(ctx context.Context, id string) (*model.QuestionWithAuthor, error)
	// ListQuestions returns every question, newest first.
	ListQuestions(ctx context.Context) ([]model.QuestionWithAuthor, error)
	QuestionExists(ctx context.Context, id string) (bool, error)

	CreateAnswer(ctx context.Context, a *model.Answer) error
	// ListAnswers returns the answers of one question, newest first.
	ListAnswers(ctx context.Context, questionID string) ([]model.AnswerWithAuthor, error)
	// CountAnswers returns answer counts keyed by question ID in one grouped
	// query. Questions without answers are absent from the map.
	CountAnswers(ctx context.Context, questionIDs []string) (map[string]int, error)

	// IncrementVotes atomically adds delta to a vote counter and returns the
	// new value.
	IncrementVotes(ctx context.Context, target VoteTarget, id string, delta int) (int, error)
}
