package domain

import "time"

// QuizState is the lifecycle state of a quiz.
type QuizState string

const (
	StateScheduled QuizState = "scheduled"
	StateActive    QuizState = "active"
	StateClosed    QuizState = "closed"
)

// rank orders states so a quiz can only move forward through them.
func (s QuizState) rank() int {
	switch s {
	case StateScheduled:
		return 0
	case StateActive:
		return 1
	case StateClosed:
		return 2
	}
	return -1
}

// Before reports whether s precedes other in the lifecycle.
func (s QuizState) Before(other QuizState) bool {
	return s.rank() < other.rank()
}

// Visibility controls who may include a question in their quizzes.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Option represents a possible answer for a multiple-choice question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is either multiple-choice (Options non-empty, at least one
// correct) or free-text (Answer non-empty). Once a quiz referencing it has
// received submissions the question is frozen.
type Question struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId"`
	Prompt     string     `json:"prompt"`
	Options    []Option   `json:"options,omitempty"`
	Answer     string     `json:"answer,omitempty"`
	Points     int        `json:"points"` // defaults to 1 if zero
	Visibility Visibility `json:"visibility"`
}

// FreeText reports whether the question expects a typed answer.
func (q Question) FreeText() bool {
	return len(q.Options) == 0
}

// PointValue returns the points awarded for a correct answer.
func (q Question) PointValue() int {
	if q.Points == 0 {
		return 1
	}
	return q.Points
}

// Quiz is a scheduled, time-bounded collection of questions. Submissions are
// only accepted while the quiz is within [StartAt, StartAt+Duration).
type Quiz struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	QuestionIDs []string      `json:"questionIds"`
	StartAt     time.Time     `json:"startAt"`
	Duration    time.Duration `json:"duration"`
	State       QuizState     `json:"state"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// EndAt is the instant the quiz stops accepting submissions.
func (q Quiz) EndAt() time.Time {
	return q.StartAt.Add(q.Duration)
}

// Contains reports whether the question belongs to the quiz sequence.
func (q Quiz) Contains(questionID string) bool {
	for _, id := range q.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// Submission is one user's answer to one question within one quiz. At most
// one submission exists per (quiz, user, question); later attempts are
// rejected, never overwritten.
type Submission struct {
	QuizID      string    `json:"quizId"`
	UserID      string    `json:"userId"`
	QuestionID  string    `json:"questionId"`
	Answer      string    `json:"answer"`
	SubmittedAt time.Time `json:"submittedAt"`
	Correct     bool      `json:"correct"`
	Points      int       `json:"points"`
}

// UserScore is the cumulative and per-quiz point ledger for a user. Both
// fields are increment-only; Total always equals the sum of PerQuiz.
type UserScore struct {
	UserID  string         `json:"userId"`
	Total   int            `json:"total"`
	PerQuiz map[string]int `json:"perQuiz"`
}

// RankingEntry is one row of an ordered leaderboard.
type RankingEntry struct {
	UserID string `json:"userId"`
	Points int    `json:"points"`
}
