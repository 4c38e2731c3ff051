package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sumo47/exam-prep-back/internal/apperror"
	"github.com/sumo47/exam-prep-back/internal/auth"
	"github.com/sumo47/exam-prep-back/internal/model"
)

// QuestionService is what QuestionHandler needs from service.QuestionService.
type QuestionService interface {
	List(ctx context.Context) ([]model.QuestionSummary, error)
	Get(ctx context.Context, id string) (*model.QuestionDetail, error)
	Create(ctx context.Context, author *model.User, title, description, subject string) (*model.QuestionWithAuthor, error)
	Answer(ctx context.Context, author *model.User, questionID, text string) (*model.AnswerWithAuthor, error)
}

// QuestionHandler serves the question listing, question pages and posting.
type QuestionHandler struct {
	questions QuestionService
	logger    *slog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		logger:    logger,
	}
}

// HandleList returns every question, newest first.
//
// HTTP: GET /api/questions
//
// Each item carries answerCount; answers is always [] here and is only
// filled in by HandleGet.
func (h *QuestionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.questions.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]questionResponse, len(summaries))
	for i, s := range summaries {
		resp[i] = newQuestionSummaryResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGet returns one question with its answers, newest first.
//
// HTTP: GET /api/questions/{id}
func (h *QuestionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.questions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuestionDetailResponse(detail))
}

type createQuestionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Subject     string `json:"subject"`
}

// HandleCreate posts a new question as the authenticated user.
//
// HTTP: POST /api/questions
// Auth: Required
// REQUEST BODY: {"title": "...", "description": "...", "subject": "..."}
func (h *QuestionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req createQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	q, err := h.questions.Create(r.Context(), user, req.Title, req.Description, req.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuestionResponse(*q))
}

type createAnswerRequest struct {
	Text string `json:"text"`
}

// HandleCreateAnswer posts an answer to a question as the authenticated user.
//
// HTTP: POST /api/questions/{id}/answers
// Auth: Required
// REQUEST BODY: {"text": "..."}
func (h *QuestionHandler) HandleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req createAnswerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.questions.Answer(r.Context(), user, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAnswerResponse(*a))
}

// requireUser fetches the authenticated user, writing a 401 if the route is
// somehow reached without RequireAuth.
func requireUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*model.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		logger.Error("protected handler reached without a user", slog.String("path", r.URL.Path))
		writeError(w, apperror.Unauthorized("authentication required", nil))
		return nil, false
	}
	return user, true
}
