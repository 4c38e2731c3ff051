package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/model"
	"github.com/sumo47/exam-prep-back/internal/repository"
)

// compile-time check that *DB implements repository.QuestionRepository
var _ repository.QuestionRepository = (*DB)(nil)

// questionSelect joins each question with its author's display fields, the
// SQL equivalent of "populate author".
const questionSelect = `
	SELECT q.id, q.title, q.description, q.subject, q.author_id, q.votes,
	       q.created_at, q.updated_at,
	       u.name, u.email, u.picture
	FROM questions q
	JOIN users u ON u.id = q.author_id`

func scanQuestion(row rowScanner) (*model.QuestionWithAuthor, error) {
	var q model.QuestionWithAuthor
	err := row.Scan(
		&q.ID,
		&q.Title,
		&q.Description,
		&q.Subject,
		&q.AuthorID,
		&q.Votes,
		&q.CreatedAt,
		&q.UpdatedAt,
		&q.Author.Name,
		&q.Author.Email,
		&q.Author.Picture,
	)
	if err != nil {
		return nil, err
	}
	q.Author.ID = q.AuthorID
	return &q, nil
}

// CreateQuestion inserts a question with zero votes. The NOT NULL columns
// reject the whole insert if a required value is missing; the service
// validates first so that never reaches the driver in practice.
func (db *DB) CreateQuestion(ctx context.Context, q *model.Question) error {
	now := time.Now().UTC()
	q.ID = xid.New().String()
	q.Votes = 0
	q.CreatedAt = now
	q.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO questions (id, title, description, subject, author_id, votes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.Title,
		q.Description,
		q.Subject,
		q.AuthorID,
		q.Votes,
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating question: %w", err)
	}
	return nil
}

// GetQuestionByID returns apperror.ErrNotFound if the question doesn't exist.
func (db *DB) GetQuestionByID(ctx context.Context, id string) (*model.QuestionWithAuthor, error) {
	q, err := scanQuestion(db.conn.QueryRowContext(ctx, questionSelect+` WHERE q.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}
	return q, nil
}

// ListQuestions returns every question, newest first. The id tiebreak keeps
// the order stable for rows created within the same clock tick; xids sort by
// creation time.
func (db *DB) ListQuestions(ctx context.Context) ([]model.QuestionWithAuthor, error) {
	rows, err := db.conn.QueryContext(ctx,
		questionSelect+` ORDER BY q.created_at DESC, q.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := make([]model.QuestionWithAuthor, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}

	return questions, nil
}

// QuestionExists is the cheap existence check used before inserting an answer.
func (db *DB) QuestionExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM questions WHERE id = ?`, id,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: checking question %s: %w", id, err)
	}
	return true, nil
}

// IncrementVotes adds delta to the vote counter in one UPDATE, so concurrent
// votes never lose an increment.
func (db *DB) IncrementVotes(ctx context.Context, target repository.VoteTarget, id string, delta int) (int, error) {
	var table string
	switch target {
	case repository.VoteQuestion:
		table = "questions"
	case repository.VoteAnswer:
		table = "answers"
	default:
		return 0, apperror.ValidationFailed("target", fmt.Sprintf("unknown vote target %q", target))
	}

	var votes int
	err := db.conn.QueryRowContext(ctx,
		`UPDATE `+table+` SET votes = votes + ?, updated_at = ?
		 WHERE id = ?
		 RETURNING votes`,
		delta, time.Now().UTC(), id,
	).Scan(&votes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound(string(target), id)
		}
		return 0, fmt.Errorf("sqlite: incrementing votes on %s %s: %w", target, id, err)
	}
	return votes, nil
}
