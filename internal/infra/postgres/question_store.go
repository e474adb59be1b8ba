package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-competition-service/internal/domain"
)

// QuestionStore keeps the durable question bank in Postgres as JSONB rows.
// It backs the Redis cache as both loader and persister.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM questions WHERE id=$1`, questionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	var question domain.Question
	if err := json.Unmarshal(raw, &question); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return question, nil
}

func (s *QuestionStore) SaveQuestion(ctx context.Context, question domain.Question) error {
	data, err := json.Marshal(question)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
		question.ID, string(data))
	if err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}
