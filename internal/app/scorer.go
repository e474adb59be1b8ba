package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-competition-service/internal/domain"
)

// SubmitResult is the outcome of a single answer submission. Rejections are
// expected outcomes and carry a Reason; only backend failures surface as
// errors from Submit.
type SubmitResult struct {
	Accepted bool                `json:"accepted"`
	Correct  bool                `json:"correct"`
	Points   int                 `json:"points"`
	Reason   domain.RejectReason `json:"reason,omitempty"`
}

// Scorer validates and scores answer submissions against a quiz's question
// set and active window. Safe for concurrent use; the duplicate-answer
// invariant is enforced by the store's create-if-absent write.
type Scorer struct {
	store Store
}

func NewScorer(store Store) *Scorer {
	return &Scorer{store: store}
}

func rejected(reason domain.RejectReason) SubmitResult {
	return SubmitResult{Reason: reason}
}

// Submit records one user's answer to one question within one quiz.
// Preconditions are checked in order, each short-circuiting with its own
// rejection reason. The quiz's state is computed from now rather than read
// from the possibly stale stored field.
func (s *Scorer) Submit(ctx context.Context, quizID, userID, questionID, answer string, now time.Time) (SubmitResult, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return rejected(domain.ReasonQuizNotFound), nil
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}

	if TargetState(quiz, now) != domain.StateActive {
		return rejected(domain.ReasonQuizNotActive), nil
	}

	if !quiz.Contains(questionID) {
		return rejected(domain.ReasonQuestionNotInQuiz), nil
	}

	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load question %s: %w", questionID, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return rejected(domain.ReasonInvalidInput), nil
	}

	correct, ok := grade(question, answer)
	if !ok {
		return rejected(domain.ReasonInvalidInput), nil
	}
	points := 0
	if correct {
		points = question.PointValue()
	}

	created, err := s.store.CreateSubmissionIfAbsent(ctx, domain.Submission{
		QuizID:      quizID,
		UserID:      userID,
		QuestionID:  questionID,
		Answer:      answer,
		SubmittedAt: now,
		Correct:     correct,
		Points:      points,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("record submission: %w", err)
	}
	if !created {
		return rejected(domain.ReasonAlreadyAnswered), nil
	}

	// The submission record is the idempotency guard; the score increment
	// follows it. A crash between the two is recovered by an external
	// reconciliation sweep, never by retrying the submission.
	if err := s.store.IncrementUserScore(ctx, userID, quizID, points); err != nil {
		return SubmitResult{}, fmt.Errorf("increment score for %s: %w", userID, err)
	}

	return SubmitResult{Accepted: true, Correct: correct, Points: points}, nil
}

// grade evaluates the answer against the question. For multiple choice the
// answer is an option ID; an unknown option is malformed input, not a wrong
// answer. Free-text answers are compared case-insensitively after trimming.
func grade(question domain.Question, answer string) (correct, ok bool) {
	if question.FreeText() {
		return strings.EqualFold(answer, strings.TrimSpace(question.Answer)), true
	}
	for _, opt := range question.Options {
		if opt.ID == answer {
			return opt.Correct, true
		}
	}
	return false, false
}
