package app

import (
	"time"

	"quiz-competition-service/internal/domain"
)

// StateAt computes the lifecycle state for a quiz window at a given instant.
// It is a pure function of (startAt, duration, now): before the window the
// quiz is Scheduled, within [startAt, startAt+duration) it is Active, and
// from the end instant on it is Closed.
func StateAt(startAt time.Time, duration time.Duration, now time.Time) domain.QuizState {
	if now.Before(startAt) {
		return domain.StateScheduled
	}
	if now.Before(startAt.Add(duration)) {
		return domain.StateActive
	}
	return domain.StateClosed
}

// TargetState returns the state the quiz should be persisted in at now.
// The result never regresses behind the stored state, so clock jitter within
// a tick cannot move an Active quiz back to Scheduled.
func TargetState(quiz domain.Quiz, now time.Time) domain.QuizState {
	target := StateAt(quiz.StartAt, quiz.Duration, now)
	if target.Before(quiz.State) {
		return quiz.State
	}
	return target
}
