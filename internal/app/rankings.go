package app

import (
	"context"
	"fmt"
	"sort"

	"quiz-competition-service/internal/domain"
)

// RankingService derives ordered user standings from stored point totals.
// It reads a snapshot on demand; freshness is bounded by the store, not by
// this service.
type RankingService struct {
	store Store
}

func NewRankingService(store Store) *RankingService {
	return &RankingService{store: store}
}

// Rankings returns standings for a single quiz, or cumulative standings when
// quizID is empty. Ordering is points descending with ties broken by user ID
// ascending, so repeated calls over unchanged data return identical sequences.
func (r *RankingService) Rankings(ctx context.Context, quizID string) ([]domain.RankingEntry, error) {
	entries, err := r.store.RankingSnapshot(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("ranking snapshot: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}
