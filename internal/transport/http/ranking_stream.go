package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/domain"
)

// RankingStream pushes leaderboard snapshots over a websocket. Clients get
// the current standings on connect and an update whenever the board changes,
// checked on a fixed poll interval.
type RankingStream struct {
	rankings *app.RankingService
	interval time.Duration
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewRankingStream(rankings *app.RankingService, interval time.Duration, log *slog.Logger) *RankingStream {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &RankingStream{
		rankings: rankings,
		interval: interval,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type rankingsMessage struct {
	Type     string                `json:"type"`
	QuizID   string                `json:"quizId,omitempty"`
	Rankings []domain.RankingEntry `json:"rankings"`
}

// ServeWS upgrades the request and streams leaderboard updates until the
// client disconnects. quizId is optional; empty streams the global board.
func (s *RankingStream) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var last []domain.RankingEntry
	sendSnapshot := func() bool {
		entries, err := s.rankings.Rankings(r.Context(), quizID)
		if err != nil {
			s.log.Warn("rankings fetch failed", "quiz", quizID, "error", err)
			return true
		}
		if last != nil && slices.Equal(entries, last) {
			return true
		}
		last = entries
		if err := conn.WriteJSON(rankingsMessage{Type: "rankings", QuizID: quizID, Rankings: entries}); err != nil {
			return false
		}
		return true
	}

	if !sendSnapshot() {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if !sendSnapshot() {
				return
			}
		}
	}
}
