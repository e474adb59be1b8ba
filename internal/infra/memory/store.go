package memory

import (
	"context"
	"fmt"
	"sync"

	"quiz-competition-service/internal/domain"
)

// Store is an in-memory implementation of app.ContentStore, used by unit
// tests and when the service runs without Redis.
type Store struct {
	mu          sync.RWMutex
	quizzes     map[string]domain.Quiz
	questions   map[string]domain.Question
	submissions map[string]domain.Submission
	scores      map[string]*domain.UserScore
	byQuestion  map[string]int
}

func NewStore() *Store {
	return &Store{
		quizzes:     make(map[string]domain.Quiz),
		questions:   make(map[string]domain.Question),
		submissions: make(map[string]domain.Submission),
		scores:      make(map[string]*domain.UserScore),
		byQuestion:  make(map[string]int),
	}
}

// Seed loads quizzes and questions without validation (tests, demo mode).
func (s *Store) Seed(quizzes []domain.Quiz, questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, quiz := range quizzes {
		s.quizzes[quiz.ID] = quiz
	}
	for _, question := range questions {
		s.questions[question.ID] = question
	}
}

func (s *Store) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) ListOpenQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	open := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if quiz.State != domain.StateClosed {
			open = append(open, quiz)
		}
	}
	return open, nil
}

func (s *Store) CompareAndSwapQuizState(_ context.Context, quizID string, expected, next domain.QuizState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return false, domain.ErrQuizNotFound
	}
	if quiz.State != expected {
		return false, nil
	}
	quiz.State = next
	s.quizzes[quizID] = quiz
	return true, nil
}

func submissionKey(quizID, userID, questionID string) string {
	return quizID + "/" + userID + "/" + questionID
}

func (s *Store) CreateSubmissionIfAbsent(_ context.Context, sub domain.Submission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := submissionKey(sub.QuizID, sub.UserID, sub.QuestionID)
	if _, exists := s.submissions[key]; exists {
		return false, nil
	}
	s.submissions[key] = sub
	s.byQuestion[sub.QuestionID]++
	return true, nil
}

func (s *Store) IncrementUserScore(_ context.Context, userID, quizID string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.scores[userID]
	if !ok {
		score = &domain.UserScore{UserID: userID, PerQuiz: make(map[string]int)}
		s.scores[userID] = score
	}
	score.Total += points
	score.PerQuiz[quizID] += points
	return nil
}

func (s *Store) GetUserScore(_ context.Context, userID string) (domain.UserScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[userID]
	if !ok {
		return domain.UserScore{}, domain.ErrUserNotFound
	}
	copied := domain.UserScore{UserID: score.UserID, Total: score.Total, PerQuiz: make(map[string]int, len(score.PerQuiz))}
	for quizID, points := range score.PerQuiz {
		copied.PerQuiz[quizID] = points
	}
	return copied, nil
}

func (s *Store) RankingSnapshot(_ context.Context, quizID string) ([]domain.RankingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.RankingEntry, 0, len(s.scores))
	for userID, score := range s.scores {
		if quizID == "" {
			entries = append(entries, domain.RankingEntry{UserID: userID, Points: score.Total})
			continue
		}
		if points, ok := score.PerQuiz[quizID]; ok {
			entries = append(entries, domain.RankingEntry{UserID: userID, Points: points})
		}
	}
	return entries, nil
}

func (s *Store) GetQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quizzes[quiz.ID]; exists {
		return fmt.Errorf("%w: quiz %s already exists", domain.ErrInvalidInput, quiz.ID)
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) CreateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.questions[question.ID]; exists {
		return fmt.Errorf("%w: question %s already exists", domain.ErrInvalidInput, question.ID)
	}
	s.questions[question.ID] = question
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, question domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.questions[question.ID]; !exists {
		return domain.ErrQuestionNotFound
	}
	s.questions[question.ID] = question
	return nil
}

func (s *Store) QuestionHasSubmissions(_ context.Context, questionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byQuestion[questionID] > 0, nil
}
