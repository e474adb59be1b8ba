package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quiz-competition-service/internal/domain"
)

// Worker drives quizzes through their lifecycle. Each tick it fetches the
// quizzes not yet Closed, computes the state each should be in for the tick
// time, and persists only the ones that differ. A single active instance is
// assumed; concurrent workers would contend on the CAS writes harmlessly but
// are not coordinated.
type Worker struct {
	store    Store
	interval time.Duration
	clock    func() time.Time
	log      *slog.Logger
}

func NewWorker(store Store, interval time.Duration, log *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		store:    store,
		interval: interval,
		clock:    time.Now,
		log:      log,
	}
}

// NewWorkerWithClock is test-only for deterministic tick times.
func NewWorkerWithClock(store Store, interval time.Duration, log *slog.Logger, clock func() time.Time) *Worker {
	w := NewWorker(store, interval, log)
	w.clock = clock
	return w
}

// Run ticks until ctx is cancelled. The in-flight tick always completes; the
// tick itself runs against a context detached from cancellation so store
// writes are never abandoned halfway through.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("quiz worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("quiz worker stopped")
			return
		case <-ticker.C:
			if _, err := w.Tick(context.WithoutCancel(ctx), w.clock()); err != nil {
				w.log.Error("tick failed", "error", err)
			}
		}
	}
}

// Tick applies one pass of the state machine and returns how many quizzes
// transitioned. A failed transition is logged and skipped; it does not abort
// the remaining quizzes in the same tick.
func (w *Worker) Tick(ctx context.Context, now time.Time) (int, error) {
	quizzes, err := w.store.ListOpenQuizzes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open quizzes: %w", err)
	}

	applied := 0
	for _, quiz := range quizzes {
		target := TargetState(quiz, now)
		if target == quiz.State {
			continue
		}
		ok, err := w.store.CompareAndSwapQuizState(ctx, quiz.ID, quiz.State, target)
		if err != nil {
			w.log.Warn("quiz transition failed",
				"quiz", quiz.ID, "from", quiz.State, "to", target, "error", err)
			continue
		}
		if !ok {
			// Stored state moved under us; the next tick recomputes from scratch.
			w.log.Debug("stale quiz state, skipping", "quiz", quiz.ID)
			continue
		}
		applied++
		w.log.Info("quiz transitioned", "quiz", quiz.ID, "from", quiz.State, "to", target)
		if target == domain.StateClosed {
			w.log.Info("quiz closed", "quiz", quiz.ID, "endedAt", quiz.EndAt())
		}
	}
	return applied, nil
}
