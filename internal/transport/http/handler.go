package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

// Handler exposes the quiz API over REST. Domain rejections on the
// submission path come back as a structured result with HTTP 200; the status
// code only signals transport and backend problems.
type Handler struct {
	scorer   *app.Scorer
	rankings *app.RankingService
	content  *app.ContentService
	log      *slog.Logger
}

func NewHandler(scorer *app.Scorer, rankings *app.RankingService, content *app.ContentService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{scorer: scorer, rankings: rankings, content: content, log: log}
}

// Register wires the routes into mux. When token is non-empty every /api
// route requires it as a bearer token.
func (h *Handler) Register(mux *http.ServeMux, token string) {
	guard := func(next http.HandlerFunc) http.HandlerFunc {
		if token == "" {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /api/questions", guard(h.createQuestion))
	mux.HandleFunc("PUT /api/questions/{id}", guard(h.updateQuestion))
	mux.HandleFunc("POST /api/quizzes", guard(h.createQuiz))
	mux.HandleFunc("GET /api/quizzes/{id}/status", guard(h.quizStatus))
	mux.HandleFunc("POST /api/submissions", guard(h.submit))
	mux.HandleFunc("GET /api/rankings", guard(h.getRankings))
	mux.HandleFunc("GET /api/users/{id}/score", guard(h.userScore))
}

type submissionRequest struct {
	QuizID     string `json:"quizId"`
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuizID == "" || req.UserID == "" || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "quizId, userId, and questionId are required")
		return
	}

	result, err := h.scorer.Submit(r.Context(), req.QuizID, req.UserID, req.QuestionID, req.Answer, time.Now())
	if err != nil {
		h.fail(w, "submit", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var question domain.Question
	if err := json.NewDecoder(r.Body).Decode(&question); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.content.CreateQuestion(r.Context(), question)
	if err != nil {
		h.fail(w, "create question", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var question domain.Question
	if err := json.NewDecoder(r.Body).Decode(&question); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	question.ID = r.PathValue("id")
	if err := h.content.UpdateQuestion(r.Context(), question); err != nil {
		h.fail(w, "update question", err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.content.CreateQuiz(r.Context(), quiz)
	if err != nil {
		h.fail(w, "create quiz", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) quizStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.content.Status(r.Context(), r.PathValue("id"), time.Now())
	if err != nil {
		h.fail(w, "quiz status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) getRankings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.rankings.Rankings(r.Context(), r.URL.Query().Get("quizId"))
	if err != nil {
		h.fail(w, "rankings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rankings": entries})
}

func (h *Handler) userScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.content.UserScore(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "user score", err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// fail maps domain errors to status codes. Only unexpected failures are
// logged as errors; not-found and validation outcomes are normal traffic.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuestionFrozen):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.log.Error(op+" failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable, retry later")
	default:
		h.log.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
