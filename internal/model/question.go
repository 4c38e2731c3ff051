package model

import "time"

// Question is a forum post tagged by a free-text subject.
//
// Only Votes may change after creation, and nothing in the API changes it
// yet; the counter is kept in the schema for future voting.
type Question struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	AuthorID    string    `json:"authorId"`
	Votes       int       `json:"votes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QuestionWithAuthor is a Question joined with its author's display fields.
type QuestionWithAuthor struct {
	Question
	Author Author
}

// QuestionDetail is the aggregated read model for a single question page.
type QuestionDetail struct {
	QuestionWithAuthor
	Answers []AnswerWithAuthor
}

// QuestionSummary is one row of the question listing. Answers are not
// loaded for listings, only counted.
type QuestionSummary struct {
	QuestionWithAuthor
	AnswerCount int
}
