// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never a concrete *sqlite.DB, so the
// tests in this package run against in-memory fakes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/model"
	"github.com/sumo47/exam-prep-back/internal/repository"
)

// Validation limits, in characters.
const (
	MaxTitleLength       = 200
	MaxSubjectLength     = 100
	MaxDescriptionLength = 20000
	MaxAnswerLength      = 20000
)

// QuestionService handles questions and their answers.
type QuestionService struct {
	repo   repository.QuestionRepository
	logger *slog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(repo repository.QuestionRepository, logger *slog.Logger) *QuestionService {
	return &QuestionService{
		repo:   repo,
		logger: logger,
	}
}

// List returns every question, newest first, with its answer count.
//
// Counts come from a single grouped query over all listed IDs rather than
// one count per question.
func (s *QuestionService) List(ctx context.Context) ([]model.QuestionSummary, error) {
	questions, err := s.repo.ListQuestions(ctx)
	if err != nil {
		s.logger.Error("failed to list questions", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing questions: %w", err)
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	counts, err := s.repo.CountAnswers(ctx, ids)
	if err != nil {
		s.logger.Error("failed to count answers", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting answers: %w", err)
	}

	summaries := make([]model.QuestionSummary, len(questions))
	for i, q := range questions {
		summaries[i] = model.QuestionSummary{
			QuestionWithAuthor: q,
			AnswerCount:        counts[q.ID],
		}
	}
	return summaries, nil
}

// Get returns a question with all of its answers, newest first.
// Returns apperror.ErrNotFound if the question doesn't exist.
func (s *QuestionService) Get(ctx context.Context, id string) (*model.QuestionDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "question ID is required")
	}

	q, err := s.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	answers, err := s.repo.ListAnswers(ctx, id)
	if err != nil {
		s.logger.Error("failed to list answers",
			slog.String("questionID", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing answers for %s: %w", id, err)
	}

	return &model.QuestionDetail{
		QuestionWithAuthor: *q,
		Answers:            answers,
	}, nil
}

// Create validates and stores a new question written by author.
//
// Title, description and subject are trimmed and must be non-empty. Nothing
// is written if any field is invalid.
func (s *QuestionService) Create(ctx context.Context, author *model.User, title, description, subject string) (*model.QuestionWithAuthor, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	subject = strings.TrimSpace(subject)

	if err := requireText("title", title, MaxTitleLength); err != nil {
		return nil, err
	}
	if err := requireText("description", description, MaxDescriptionLength); err != nil {
		return nil, err
	}
	if err := requireText("subject", subject, MaxSubjectLength); err != nil {
		return nil, err
	}

	q := &model.Question{
		Title:       title,
		Description: description,
		Subject:     subject,
		AuthorID:    author.ID,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		s.logger.Error("failed to create question",
			slog.String("authorID", author.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating question: %w", err)
	}

	s.logger.Info("question created",
		slog.String("id", q.ID),
		slog.String("subject", q.Subject),
		slog.String("authorID", author.ID),
	)

	return &model.QuestionWithAuthor{Question: *q, Author: authorOf(author)}, nil
}

// Answer stores a reply to questionID written by author.
//
// Returns apperror.ErrNotFound, and writes nothing, if the question doesn't
// exist. That check runs before the text is validated.
func (s *QuestionService) Answer(ctx context.Context, author *model.User, questionID, text string) (*model.AnswerWithAuthor, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return nil, apperror.ValidationFailed("id", "question ID is required")
	}

	exists, err := s.repo.QuestionExists(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("checking question %s: %w", questionID, err)
	}
	if !exists {
		return nil, apperror.NotFound("question", questionID)
	}

	text = strings.TrimSpace(text)
	if err := requireText("text", text, MaxAnswerLength); err != nil {
		return nil, err
	}

	a := &model.Answer{
		QuestionID: questionID,
		Text:       text,
		AuthorID:   author.ID,
	}
	if err := s.repo.CreateAnswer(ctx, a); err != nil {
		s.logger.Error("failed to create answer",
			slog.String("questionID", questionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating answer: %w", err)
	}

	s.logger.Info("answer created",
		slog.String("id", a.ID),
		slog.String("questionID", questionID),
		slog.String("authorID", author.ID),
	)

	return &model.AnswerWithAuthor{Answer: *a, Author: authorOf(author)}, nil
}

// requireText checks a trimmed field is present and at most max characters.
func requireText(field, value string, max int) error {
	if value == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	return maxLength(field, value, max)
}

func maxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return nil
}

func authorOf(u *model.User) model.Author {
	return model.Author{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Picture: u.Picture,
	}
}
