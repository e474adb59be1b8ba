package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-competition-service/internal/domain"
)

// ContentService handles quiz and question management. Creation enforces the
// preconditions the scorer and worker assume: positive durations, gradable
// questions, non-negative points.
type ContentService struct {
	store ContentStore
	clock func() time.Time
}

func NewContentService(store ContentStore) *ContentService {
	return &ContentService{store: store, clock: time.Now}
}

// CreateQuiz validates and stores a new quiz in the Scheduled state. The
// worker advances it from there, even if the start time is already past.
func (c *ContentService) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == "" || quiz.OwnerID == "" {
		return domain.Quiz{}, fmt.Errorf("%w: quiz id and owner required", domain.ErrInvalidInput)
	}
	if len(quiz.QuestionIDs) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: quiz needs at least one question", domain.ErrInvalidInput)
	}
	if quiz.Duration <= 0 {
		return domain.Quiz{}, fmt.Errorf("%w: quiz duration must be positive", domain.ErrInvalidInput)
	}
	if quiz.StartAt.IsZero() {
		return domain.Quiz{}, fmt.Errorf("%w: quiz start time required", domain.ErrInvalidInput)
	}
	for _, questionID := range quiz.QuestionIDs {
		if _, err := c.store.GetQuestion(ctx, questionID); err != nil {
			if errors.Is(err, domain.ErrQuestionNotFound) {
				return domain.Quiz{}, fmt.Errorf("%w: unknown question %s", domain.ErrInvalidInput, questionID)
			}
			return domain.Quiz{}, fmt.Errorf("check question %s: %w", questionID, err)
		}
	}

	quiz.State = domain.StateScheduled
	quiz.CreatedAt = c.clock()
	if err := c.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// CreateQuestion validates and stores a new question.
func (c *ContentService) CreateQuestion(ctx context.Context, question domain.Question) (domain.Question, error) {
	if question.Visibility == "" {
		question.Visibility = domain.VisibilityPublic
	}
	if err := validateQuestion(question); err != nil {
		return domain.Question{}, err
	}
	if err := c.store.CreateQuestion(ctx, question); err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

// UpdateQuestion rewrites a question, unless it has already been answered in
// some quiz; edits after that point would corrupt recorded scores.
func (c *ContentService) UpdateQuestion(ctx context.Context, question domain.Question) error {
	if err := validateQuestion(question); err != nil {
		return err
	}
	answered, err := c.store.QuestionHasSubmissions(ctx, question.ID)
	if err != nil {
		return fmt.Errorf("check submissions for %s: %w", question.ID, err)
	}
	if answered {
		return domain.ErrQuestionFrozen
	}
	if err := c.store.UpdateQuestion(ctx, question); err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return nil
}

// QuizStatus is a read-only view of a quiz's progress.
type QuizStatus struct {
	QuizID         string           `json:"quizId"`
	State          domain.QuizState `json:"state"`
	TotalQuestions int              `json:"totalQuestions"`
	StartAt        time.Time        `json:"startAt"`
	TimeRemaining  time.Duration    `json:"timeRemaining"`
}

// Status reports the quiz's computed state and, while active, the time left
// in its window.
func (c *ContentService) Status(ctx context.Context, quizID string, now time.Time) (QuizStatus, error) {
	quiz, err := c.store.GetQuiz(ctx, quizID)
	if err != nil {
		return QuizStatus{}, err
	}

	state := TargetState(quiz, now)
	var remaining time.Duration
	if state == domain.StateActive {
		remaining = quiz.EndAt().Sub(now)
	}
	return QuizStatus{
		QuizID:         quiz.ID,
		State:          state,
		TotalQuestions: len(quiz.QuestionIDs),
		StartAt:        quiz.StartAt,
		TimeRemaining:  remaining,
	}, nil
}

// UserScore returns the user's point ledger.
func (c *ContentService) UserScore(ctx context.Context, userID string) (domain.UserScore, error) {
	return c.store.GetUserScore(ctx, userID)
}

func validateQuestion(question domain.Question) error {
	if question.ID == "" || question.OwnerID == "" {
		return fmt.Errorf("%w: question id and owner required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(question.Prompt) == "" {
		return fmt.Errorf("%w: question prompt required", domain.ErrInvalidInput)
	}
	if question.Points < 0 {
		return fmt.Errorf("%w: question points must be non-negative", domain.ErrInvalidInput)
	}
	switch question.Visibility {
	case domain.VisibilityPublic, domain.VisibilityPrivate:
	default:
		return fmt.Errorf("%w: unknown visibility %q", domain.ErrInvalidInput, question.Visibility)
	}

	if question.FreeText() {
		if strings.TrimSpace(question.Answer) == "" {
			return fmt.Errorf("%w: free-text question needs an answer", domain.ErrInvalidInput)
		}
		return nil
	}

	seen := make(map[string]struct{}, len(question.Options))
	hasCorrect := false
	for _, opt := range question.Options {
		if opt.ID == "" {
			return fmt.Errorf("%w: option id required", domain.ErrInvalidInput)
		}
		if _, dup := seen[opt.ID]; dup {
			return fmt.Errorf("%w: duplicate option id %s", domain.ErrInvalidInput, opt.ID)
		}
		seen[opt.ID] = struct{}{}
		if opt.Correct {
			hasCorrect = true
		}
	}
	if !hasCorrect {
		return fmt.Errorf("%w: question needs a correct option", domain.ErrInvalidInput)
	}
	return nil
}
