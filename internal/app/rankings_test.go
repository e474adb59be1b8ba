package app_test

import (
	"context"
	"testing"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
	"quiz-competition-service/internal/infra/memory"
)

func TestRankingsOrderAndTieBreak(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	// Same points for bob and adam: the tie must break by user ID.
	seed := []struct {
		user   string
		quiz   string
		points int
	}{
		{"zoe", "quiz-1", 5},
		{"bob", "quiz-1", 10},
		{"adam", "quiz-1", 10},
		{"zoe", "quiz-2", 20},
	}
	for _, s := range seed {
		if err := store.IncrementUserScore(ctx, s.user, s.quiz, s.points); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	rankings := app.NewRankingService(store)

	perQuiz, err := rankings.Rankings(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	want := []domain.RankingEntry{
		{UserID: "adam", Points: 10},
		{UserID: "bob", Points: 10},
		{UserID: "zoe", Points: 5},
	}
	if len(perQuiz) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(perQuiz))
	}
	for i := range want {
		if perQuiz[i] != want[i] {
			t.Fatalf("entry %d: got %+v, want %+v", i, perQuiz[i], want[i])
		}
	}

	global, err := rankings.Rankings(ctx, "")
	if err != nil {
		t.Fatalf("global rankings: %v", err)
	}
	if global[0].UserID != "zoe" || global[0].Points != 25 {
		t.Fatalf("expected zoe leading globally with 25, got %+v", global[0])
	}
}

func TestRankingsAreDeterministic(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for _, user := range []string{"u3", "u1", "u2"} {
		if err := store.IncrementUserScore(ctx, user, "quiz-1", 7); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	rankings := app.NewRankingService(store)
	first, err := rankings.Rankings(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	second, err := rankings.Rankings(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("rankings not deterministic at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
