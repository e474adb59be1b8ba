package app_test

import (
	"testing"
	"time"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

func TestStateAt(t *testing.T) {
	start := time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)
	duration := 10 * time.Minute

	cases := []struct {
		name string
		now  time.Time
		want domain.QuizState
	}{
		{"before start", start.Add(-time.Second), domain.StateScheduled},
		{"at start", start, domain.StateActive},
		{"mid window", start.Add(5 * time.Minute), domain.StateActive},
		{"at end", start.Add(duration), domain.StateClosed},
		{"after end", start.Add(time.Hour), domain.StateClosed},
	}
	for _, tc := range cases {
		if got := app.StateAt(start, duration, tc.now); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestTargetStateNeverRegresses(t *testing.T) {
	start := time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)
	quiz := domain.Quiz{
		ID:       "quiz-1",
		StartAt:  start,
		Duration: 10 * time.Minute,
		State:    domain.StateActive,
	}

	// Clock jitter just before start must not pull an active quiz back.
	if got := app.TargetState(quiz, start.Add(-time.Second)); got != domain.StateActive {
		t.Fatalf("expected active to stick, got %s", got)
	}

	quiz.State = domain.StateClosed
	if got := app.TargetState(quiz, start.Add(time.Minute)); got != domain.StateClosed {
		t.Fatalf("expected closed to stick, got %s", got)
	}
}

func TestTargetStateSkipsPastActiveWhenLate(t *testing.T) {
	start := time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)
	quiz := domain.Quiz{
		ID:       "quiz-1",
		StartAt:  start,
		Duration: 10 * time.Minute,
		State:    domain.StateScheduled,
	}

	// A delayed tick observes the quiz already past its end time.
	if got := app.TargetState(quiz, start.Add(time.Hour)); got != domain.StateClosed {
		t.Fatalf("expected closed for late tick, got %s", got)
	}
}
