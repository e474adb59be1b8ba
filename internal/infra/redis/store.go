package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-competition-service/internal/domain"
)

// QuestionLoader fetches question content from the durable tier (Postgres).
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// QuestionPersister writes question content to the durable tier.
type QuestionPersister interface {
	SaveQuestion(ctx context.Context, question domain.Question) error
}

// Store is the Redis implementation of app.ContentStore.
//
// Keying:
//
//	quiz:{id}                      hash: "state" (authoritative) + "data" (JSON)
//	quizzes:open                   set of quiz IDs not yet closed
//	submission:{quiz}:{user}:{q}   JSON record, written with SETNX
//	question:{id}                  JSON, cache over the loader (or authoritative)
//	question:{id}:answered         submission counter guarding edits
//	score:{user}                   hash: "total" + "quiz:{quizID}" fields
//	rankings / rankings:{quiz}     sorted sets, incremented with the scores
type Store struct {
	client    *redis.Client
	loader    QuestionLoader
	persister QuestionPersister
	ttl       time.Duration
	sf        singleflight.Group
	rnd       *rand.Rand
}

// NewStore builds a Store. loader and persister may be nil; Redis then holds
// questions authoritatively and they never expire.
func NewStore(client *redis.Client, loader QuestionLoader, persister QuestionPersister, ttl time.Duration) *Store {
	return &Store{
		client:    client,
		loader:    loader,
		persister: persister,
		ttl:       ttl,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// casState flips the state field only when it still holds the expected value,
// and maintains the open-quizzes index on close.
var casState = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'state')
if cur ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'state', ARGV[2])
if ARGV[2] == 'closed' then
  redis.call('SREM', KEYS[2], ARGV[3])
end
return 1
`)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}

func quizKey(quizID string) string { return "quiz:" + quizID }

func questionKey(questionID string) string { return "question:" + questionID }

func answeredKey(questionID string) string { return "question:" + questionID + ":answered" }

func scoreKey(userID string) string { return "score:" + userID }

func submissionKey(quizID, userID, questionID string) string {
	return "submission:" + quizID + ":" + userID + ":" + questionID
}

func rankingKey(quizID string) string {
	if quizID == "" {
		return "rankings"
	}
	return "rankings:" + quizID
}

const openQuizzesKey = "quizzes:open"

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	fields, err := s.client.HGetAll(ctx, quizKey(quizID)).Result()
	if err != nil {
		return domain.Quiz{}, unavailable("hgetall quiz", err)
	}
	if len(fields) == 0 {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(fields["data"]), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz %s: %w", quizID, err)
	}
	// The state field is the authority; "data" may lag behind transitions.
	if state, ok := fields["state"]; ok {
		quiz.State = domain.QuizState(state)
	}
	return quiz, nil
}

func (s *Store) ListOpenQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	ids, err := s.client.SMembers(ctx, openQuizzesKey).Result()
	if err != nil {
		return nil, unavailable("smembers open quizzes", err)
	}
	quizzes := make([]domain.Quiz, 0, len(ids))
	for _, id := range ids {
		quiz, err := s.GetQuiz(ctx, id)
		if errors.Is(err, domain.ErrQuizNotFound) {
			// Index entry outlived the quiz record; drop it.
			_ = s.client.SRem(ctx, openQuizzesKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, nil
}

func (s *Store) CompareAndSwapQuizState(ctx context.Context, quizID string, expected, next domain.QuizState) (bool, error) {
	res, err := casState.Run(ctx, s.client,
		[]string{quizKey(quizID), openQuizzesKey},
		string(expected), string(next), quizID).Int64()
	if err != nil {
		return false, unavailable("cas quiz state", err)
	}
	return res == 1, nil
}

func (s *Store) CreateSubmissionIfAbsent(ctx context.Context, sub domain.Submission) (bool, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return false, fmt.Errorf("marshal submission: %w", err)
	}
	created, err := s.client.SetNX(ctx, submissionKey(sub.QuizID, sub.UserID, sub.QuestionID), data, 0).Result()
	if err != nil {
		return false, unavailable("setnx submission", err)
	}
	if created {
		_ = s.client.Incr(ctx, answeredKey(sub.QuestionID)).Err()
	}
	return created, nil
}

func (s *Store) IncrementUserScore(ctx context.Context, userID, quizID string, points int) error {
	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, scoreKey(userID), "total", int64(points))
	pipe.HIncrBy(ctx, scoreKey(userID), "quiz:"+quizID, int64(points))
	pipe.ZIncrBy(ctx, rankingKey(""), float64(points), userID)
	pipe.ZIncrBy(ctx, rankingKey(quizID), float64(points), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("increment score", err)
	}
	return nil
}

func (s *Store) GetUserScore(ctx context.Context, userID string) (domain.UserScore, error) {
	fields, err := s.client.HGetAll(ctx, scoreKey(userID)).Result()
	if err != nil {
		return domain.UserScore{}, unavailable("hgetall score", err)
	}
	if len(fields) == 0 {
		return domain.UserScore{}, domain.ErrUserNotFound
	}
	score := domain.UserScore{UserID: userID, PerQuiz: make(map[string]int)}
	for field, raw := range fields {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return domain.UserScore{}, fmt.Errorf("malformed score field %s for %s: %w", field, userID, err)
		}
		if field == "total" {
			score.Total = value
			continue
		}
		if quizID, ok := strings.CutPrefix(field, "quiz:"); ok {
			score.PerQuiz[quizID] = value
		}
	}
	return score, nil
}

func (s *Store) RankingSnapshot(ctx context.Context, quizID string) ([]domain.RankingEntry, error) {
	members, err := s.client.ZRangeWithScores(ctx, rankingKey(quizID), 0, -1).Result()
	if err != nil {
		return nil, unavailable("zrange rankings", err)
	}
	entries := make([]domain.RankingEntry, 0, len(members))
	for _, member := range members {
		userID, _ := member.Member.(string)
		entries = append(entries, domain.RankingEntry{UserID: userID, Points: int(member.Score)})
	}
	return entries, nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	if question, err := s.cachedQuestion(ctx, questionID); err == nil {
		return question, nil
	} else if !errors.Is(err, redis.Nil) {
		return domain.Question{}, err
	}

	if s.loader == nil {
		return domain.Question{}, domain.ErrQuestionNotFound
	}

	result, err, _ := s.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if question, err := s.cachedQuestion(ctx, questionID); err == nil {
			return question, nil
		} else if !errors.Is(err, redis.Nil) {
			return domain.Question{}, err
		}

		question, err := s.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}
		s.cacheQuestion(ctx, question)
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (s *Store) cachedQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	raw, err := s.client.Get(ctx, questionKey(questionID)).Result()
	if err == redis.Nil {
		return domain.Question{}, err
	}
	if err != nil {
		return domain.Question{}, unavailable("get question", err)
	}
	var question domain.Question
	if err := json.Unmarshal([]byte(raw), &question); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question %s: %w", questionID, err)
	}
	return question, nil
}

func (s *Store) cacheQuestion(ctx context.Context, question domain.Question) {
	data, err := json.Marshal(question)
	if err != nil {
		return
	}
	ttl := time.Duration(0)
	if s.loader != nil {
		// Only expire cached copies; without a loader Redis is the authority.
		ttl = s.ttlWithJitter()
	}
	_ = s.client.Set(ctx, questionKey(question.ID), data, ttl).Err()
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	created, err := s.client.HSetNX(ctx, quizKey(quiz.ID), "state", string(quiz.State)).Result()
	if err != nil {
		return unavailable("hsetnx quiz", err)
	}
	if !created {
		return fmt.Errorf("%w: quiz %s already exists", domain.ErrInvalidInput, quiz.ID)
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, quizKey(quiz.ID), "data", data)
	pipe.SAdd(ctx, openQuizzesKey, quiz.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("store quiz", err)
	}
	return nil
}

func (s *Store) CreateQuestion(ctx context.Context, question domain.Question) error {
	if s.persister != nil {
		if err := s.persister.SaveQuestion(ctx, question); err != nil {
			return fmt.Errorf("persist question: %w", err)
		}
	}
	s.cacheQuestion(ctx, question)
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question domain.Question) error {
	return s.CreateQuestion(ctx, question)
}

func (s *Store) QuestionHasSubmissions(ctx context.Context, questionID string) (bool, error) {
	count, err := s.client.Get(ctx, answeredKey(questionID)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get answered count", err)
	}
	return count > 0, nil
}

func (s *Store) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
