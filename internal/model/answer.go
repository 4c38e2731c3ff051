package model

import "time"

// Answer is a reply to a Question. QuestionID must name an existing question
// when the answer is created; the service checks this before inserting.
type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"questionId"`
	Text       string    `json:"text"`
	AuthorID   string    `json:"authorId"`
	Votes      int       `json:"votes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AnswerWithAuthor is an Answer joined with its author's display fields.
type AnswerWithAuthor struct {
	Answer
	Author Author
}
