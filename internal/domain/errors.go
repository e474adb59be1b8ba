package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates the question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates no score ledger exists for the user yet.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizNotActive is returned for submissions outside the active window.
	ErrQuizNotActive = errors.New("quiz not active")
	// ErrQuestionNotInQuiz is returned when the question is not part of the quiz.
	ErrQuestionNotInQuiz = errors.New("question not in quiz")
	// ErrAlreadyAnswered is returned when the user already answered the question in this quiz.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidInput indicates a malformed answer, quiz, or question.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuestionFrozen is returned for edits to a question that already has submissions.
	ErrQuestionFrozen = errors.New("question has submissions and cannot be modified")
	// ErrStoreUnavailable wraps transient backend failures; the only error
	// callers should retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// RejectReason labels why a submission was not accepted. Rejections are
// expected outcomes, returned as data rather than errors.
type RejectReason string

const (
	ReasonNone              RejectReason = ""
	ReasonQuizNotFound      RejectReason = "quiz_not_found"
	ReasonQuizNotActive     RejectReason = "quiz_not_active"
	ReasonQuestionNotInQuiz RejectReason = "question_not_in_quiz"
	ReasonAlreadyAnswered   RejectReason = "already_answered"
	ReasonInvalidInput      RejectReason = "invalid_input"
)
