package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sumo47/exam-prep-back/internal/model"
)

const answerSelect = `
	SELECT a.id, a.question_id, a.text, a.author_id, a.votes,
	       a.created_at, a.updated_at,
	       u.name, u.email, u.picture
	FROM answers a
	JOIN users u ON u.id = a.author_id`

func scanAnswer(row rowScanner) (*model.AnswerWithAuthor, error) {
	var a model.AnswerWithAuthor
	err := row.Scan(
		&a.ID,
		&a.QuestionID,
		&a.Text,
		&a.AuthorID,
		&a.Votes,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.Author.Name,
		&a.Author.Email,
		&a.Author.Picture,
	)
	if err != nil {
		return nil, err
	}
	a.Author.ID = a.AuthorID
	return &a, nil
}

// CreateAnswer inserts an answer. The caller is responsible for checking
// that the question exists; the foreign key is a second line of defence on
// file databases.
func (db *DB) CreateAnswer(ctx context.Context, a *model.Answer) error {
	now := time.Now().UTC()
	a.ID = xid.New().String()
	a.Votes = 0
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, text, author_id, votes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.QuestionID,
		a.Text,
		a.AuthorID,
		a.Votes,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating answer on question %s: %w", a.QuestionID, err)
	}
	return nil
}

// ListAnswers returns the answers of one question, newest first.
func (db *DB) ListAnswers(ctx context.Context, questionID string) ([]model.AnswerWithAuthor, error) {
	rows, err := db.conn.QueryContext(ctx,
		answerSelect+` WHERE a.question_id = ? ORDER BY a.created_at DESC, a.id DESC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for %s: %w", questionID, err)
	}
	defer rows.Close()

	answers := make([]model.AnswerWithAuthor, 0)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		answers = append(answers, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}

	return answers, nil
}

// CountAnswers counts answers for the given questions in one grouped query.
// The IDs are matched in Go rather than bound into an IN list, so the query
// stays within SQLite's bound-parameter limit however many questions exist.
func (db *DB) CountAnswers(ctx context.Context, questionIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(questionIDs))
	if len(questionIDs) == 0 {
		return counts, nil
	}

	wanted := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		wanted[id] = struct{}{}
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT question_id, COUNT(*) FROM answers GROUP BY question_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer count: %w", err)
		}
		if _, ok := wanted[id]; ok {
			counts[id] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answer counts: %w", err)
	}

	return counts, nil
}
