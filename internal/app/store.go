package app

import (
	"context"

	"quiz-competition-service/internal/domain"
)

// Store abstracts the persistence layer for quizzes, questions, submissions,
// and scores (in-memory, Redis, etc). Implementations must provide the
// conditional-write primitives the core relies on: create-if-absent for
// submissions and compare-and-swap for quiz state.
type Store interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// ListOpenQuizzes returns every quiz whose stored state is not Closed.
	ListOpenQuizzes(ctx context.Context) ([]domain.Quiz, error)
	// CompareAndSwapQuizState atomically moves a quiz from expected to next.
	// Returns false without error when the stored state no longer matches.
	CompareAndSwapQuizState(ctx context.Context, quizID string, expected, next domain.QuizState) (bool, error)
	// CreateSubmissionIfAbsent writes the submission keyed by its
	// (quiz, user, question) triple. Returns false when the triple already
	// exists; the prior record is never overwritten.
	CreateSubmissionIfAbsent(ctx context.Context, sub domain.Submission) (bool, error)
	// IncrementUserScore adds points to both the user's cumulative total and
	// the per-quiz breakdown, creating the ledger on first use.
	IncrementUserScore(ctx context.Context, userID, quizID string, points int) error
	GetUserScore(ctx context.Context, userID string) (domain.UserScore, error)
	// RankingSnapshot returns (user, points) pairs for a quiz, or for the
	// cumulative totals when quizID is empty. Order is not guaranteed.
	RankingSnapshot(ctx context.Context, quizID string) ([]domain.RankingEntry, error)
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// ContentStore extends Store with the write paths used by quiz and question
// management.
type ContentStore interface {
	Store

	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	CreateQuestion(ctx context.Context, question domain.Question) error
	UpdateQuestion(ctx context.Context, question domain.Question) error
	// QuestionHasSubmissions reports whether any quiz referencing the
	// question has received submissions for it.
	QuestionHasSubmissions(ctx context.Context, questionID string) (bool, error)
}
