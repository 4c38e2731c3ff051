package handler

import (
	"time"

	"github.com/sumo47/exam-prep-back/internal/model"
)

// JSON PROJECTIONS:
// The wire shapes below are what the frontend consumes. They are kept apart
// from the model structs so a schema change never leaks into the API, and so
// each endpoint shows exactly the fields it should (the public profile, for
// one, has no googleId).

// userResponse is a user's own record: the login response and /auth/me.
type userResponse struct {
	ID        string `json:"id"`
	GoogleID  string `json:"googleId"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Picture   string `json:"picture"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Education string `json:"education"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		GoogleID:  u.GoogleID,
		Email:     u.Email,
		Name:      u.Name,
		Picture:   u.Picture,
		Bio:       u.Bio,
		Location:  u.Location,
		Education: u.Education,
	}
}

// profileResponse is the public view of any user.
type profileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Picture   string `json:"picture"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Education string `json:"education"`
}

func newProfileResponse(u *model.User) profileResponse {
	return profileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Picture:   u.Picture,
		Bio:       u.Bio,
		Location:  u.Location,
		Education: u.Education,
	}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// answerResponse flattens the author into display fields.
type answerResponse struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Author        string    `json:"author"`
	AuthorEmail   string    `json:"authorEmail"`
	AuthorPicture string    `json:"authorPicture"`
	Votes         int       `json:"votes"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newAnswerResponse(a model.AnswerWithAuthor) answerResponse {
	return answerResponse{
		ID:            a.ID,
		Text:          a.Text,
		Author:        a.Author.Name,
		AuthorEmail:   a.Author.Email,
		AuthorPicture: a.Author.Picture,
		Votes:         a.Votes,
		CreatedAt:     a.CreatedAt,
	}
}

// questionResponse is shared by the listing, the detail page and create.
// Answers is never null: the listing always sends [] and only the detail
// page fills it.
type questionResponse struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Subject       string           `json:"subject"`
	Author        string           `json:"author"`
	AuthorEmail   string           `json:"authorEmail"`
	AuthorPicture string           `json:"authorPicture"`
	Votes         int              `json:"votes"`
	Answers       []answerResponse `json:"answers"`
	AnswerCount   int              `json:"answerCount"`
	CreatedAt     time.Time        `json:"createdAt"`
}

func newQuestionResponse(q model.QuestionWithAuthor) questionResponse {
	return questionResponse{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		Subject:       q.Subject,
		Author:        q.Author.Name,
		AuthorEmail:   q.Author.Email,
		AuthorPicture: q.Author.Picture,
		Votes:         q.Votes,
		Answers:       []answerResponse{},
		CreatedAt:     q.CreatedAt,
	}
}

func newQuestionSummaryResponse(s model.QuestionSummary) questionResponse {
	resp := newQuestionResponse(s.QuestionWithAuthor)
	resp.AnswerCount = s.AnswerCount
	return resp
}

func newQuestionDetailResponse(d *model.QuestionDetail) questionResponse {
	resp := newQuestionResponse(d.QuestionWithAuthor)
	resp.Answers = make([]answerResponse, len(d.Answers))
	for i, a := range d.Answers {
		resp.Answers[i] = newAnswerResponse(a)
	}
	resp.AnswerCount = len(d.Answers)
	return resp
}
