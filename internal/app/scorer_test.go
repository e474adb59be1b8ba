package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
	"quiz-competition-service/internal/infra/memory"
)

var quizStart = time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)

func newSeededStore() *memory.Store {
	store := memory.NewStore()
	store.Seed(
		[]domain.Quiz{
			{
				ID:          "quiz-1",
				OwnerID:     "owner-1",
				QuestionIDs: []string{"q1", "q2"},
				StartAt:     quizStart,
				Duration:    600 * time.Second,
				// Stored state is deliberately stale; the scorer must compute
				// the state from the submission time instead.
				State: domain.StateScheduled,
			},
		},
		[]domain.Question{
			{
				ID:      "q1",
				OwnerID: "owner-1",
				Prompt:  "What is the capital of France?",
				Answer:  "Paris",
				Points:  10,
			},
			{
				ID:      "q2",
				OwnerID: "owner-1",
				Prompt:  "Pick the even number",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
				},
				Points: 5,
			},
		},
	)
	return store
}

func TestSubmitLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore()
	scorer := app.NewScorer(store)

	// Correct answer inside the window, case and whitespace ignored.
	result, err := scorer.Submit(ctx, "quiz-1", "u1", "q1", "  paris ", quizStart.Add(100*time.Second))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Accepted || !result.Correct || result.Points != 10 {
		t.Fatalf("expected accepted correct 10 points, got %+v", result)
	}

	// Second attempt at the same question is rejected, not overwritten.
	result, err = scorer.Submit(ctx, "quiz-1", "u1", "q1", "London", quizStart.Add(200*time.Second))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Accepted || result.Reason != domain.ReasonAlreadyAnswered {
		t.Fatalf("expected already answered, got %+v", result)
	}

	// A different question after the window closes is rejected as inactive.
	result, err = scorer.Submit(ctx, "quiz-1", "u1", "q2", "o2", quizStart.Add(700*time.Second))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Accepted || result.Reason != domain.ReasonQuizNotActive {
		t.Fatalf("expected quiz not active, got %+v", result)
	}

	score, err := store.GetUserScore(ctx, "u1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if score.Total != 10 || score.PerQuiz["quiz-1"] != 10 {
		t.Fatalf("expected 10 points from the single accepted submission, got %+v", score)
	}
}

func TestSubmitRejectionOrder(t *testing.T) {
	ctx := context.Background()
	scorer := app.NewScorer(newSeededStore())
	during := quizStart.Add(time.Minute)

	result, err := scorer.Submit(ctx, "quiz-missing", "u1", "q1", "Paris", during)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Reason != domain.ReasonQuizNotFound {
		t.Fatalf("expected quiz not found, got %+v", result)
	}

	result, err = scorer.Submit(ctx, "quiz-1", "u1", "q1", "Paris", quizStart.Add(-time.Minute))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Reason != domain.ReasonQuizNotActive {
		t.Fatalf("expected quiz not active before start, got %+v", result)
	}

	result, err = scorer.Submit(ctx, "quiz-1", "u1", "q-other", "Paris", during)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Reason != domain.ReasonQuestionNotInQuiz {
		t.Fatalf("expected question not in quiz, got %+v", result)
	}

	result, err = scorer.Submit(ctx, "quiz-1", "u1", "q1", "   ", during)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Reason != domain.ReasonInvalidInput {
		t.Fatalf("expected invalid input for blank answer, got %+v", result)
	}

	// Unknown option IDs are malformed input, not wrong answers.
	result, err = scorer.Submit(ctx, "quiz-1", "u1", "q2", "o9", during)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Reason != domain.ReasonInvalidInput {
		t.Fatalf("expected invalid input for unknown option, got %+v", result)
	}
}

func TestSubmitWrongAnswerScoresZero(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore()
	scorer := app.NewScorer(store)

	result, err := scorer.Submit(ctx, "quiz-1", "u1", "q2", "o1", quizStart.Add(time.Minute))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Accepted || result.Correct || result.Points != 0 {
		t.Fatalf("expected accepted incorrect 0 points, got %+v", result)
	}

	// The ledger is still created so the user shows up in rankings.
	score, err := store.GetUserScore(ctx, "u1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if score.Total != 0 {
		t.Fatalf("expected zero total, got %d", score.Total)
	}
}

func TestRejectedSubmissionDoesNotMutateScore(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore()
	scorer := app.NewScorer(store)

	if _, err := scorer.Submit(ctx, "quiz-1", "u1", "q1", "Paris", quizStart.Add(time.Minute)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before, err := store.GetUserScore(ctx, "u1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}

	if _, err := scorer.Submit(ctx, "quiz-wrong", "u1", "q1", "Paris", quizStart.Add(time.Minute)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	after, err := store.GetUserScore(ctx, "u1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if before.Total != after.Total {
		t.Fatalf("rejected submission changed total: %d -> %d", before.Total, after.Total)
	}
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore()
	scorer := app.NewScorer(store)
	during := quizStart.Add(time.Minute)

	const attempts = 32
	var wg sync.WaitGroup
	results := make([]app.SubmitResult, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := scorer.Submit(ctx, "quiz-1", "u1", "q1", "Paris", during)
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, result := range results {
		if result.Accepted {
			accepted++
		} else if result.Reason != domain.ReasonAlreadyAnswered {
			t.Fatalf("expected already answered for losers, got %+v", result)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted submission, got %d", accepted)
	}

	score, err := store.GetUserScore(ctx, "u1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if score.Total != 10 {
		t.Fatalf("expected the question scored exactly once, got total %d", score.Total)
	}
}

func TestUserScoreTotalMatchesBreakdown(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore()
	store.Seed([]domain.Quiz{
		{
			ID:          "quiz-2",
			OwnerID:     "owner-1",
			QuestionIDs: []string{"q2"},
			StartAt:     quizStart,
			Duration:    600 * time.Second,
			State:       domain.StateScheduled,
		},
	}, nil)
	scorer := app.NewScorer(store)
	during := quizStart.Add(time.Minute)

	for _, sub := range []struct{ quiz, question, answer string }{
		{"quiz-1", "q1", "Paris"},
		{"quiz-1", "q2", "o2"},
		{"quiz-2", "q2", "o2"},
	} {
		if _, err := scorer.Submit(ctx, sub.quiz, "u1", sub.question, sub.answer, during); err != nil {
			t.Fatalf("submit %s/%s: %v", sub.quiz, sub.question, err)
		}
	}

	score, err := store.GetUserScore(ctx, "u1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	sum := 0
	for _, points := range score.PerQuiz {
		sum += points
	}
	if score.Total != sum {
		t.Fatalf("total %d does not match breakdown sum %d", score.Total, sum)
	}
	if score.Total != 20 {
		t.Fatalf("expected 20 points (10+5+5), got %d", score.Total)
	}
}

func TestSubmitPropagatesStoreFailure(t *testing.T) {
	ctx := context.Background()
	scorer := app.NewScorer(failingStore{newSeededStore()})

	_, err := scorer.Submit(ctx, "quiz-1", "u1", "q1", "Paris", quizStart.Add(time.Minute))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

// failingStore simulates a transient backend outage on the submission write.
type failingStore struct {
	app.Store
}

func (failingStore) CreateSubmissionIfAbsent(context.Context, domain.Submission) (bool, error) {
	return false, domain.ErrStoreUnavailable
}
