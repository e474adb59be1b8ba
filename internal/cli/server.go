package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/config"
	"quiz-competition-service/internal/infra/memory"
	pgstore "quiz-competition-service/internal/infra/postgres"
	redisstore "quiz-competition-service/internal/infra/redis"
	transport "quiz-competition-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the API server with the
// lifecycle worker running in-process.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server and lifecycle worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	scorer := app.NewScorer(store)
	rankings := app.NewRankingService(store)
	content := app.NewContentService(store)

	interval := config.Duration(cfg.Worker.Interval, 10*time.Second)
	worker := app.NewWorker(store, interval, log)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	handler := transport.NewHandler(scorer, rankings, content, log)
	wsHandler := transport.NewRankingStream(rankings, 2*time.Second, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux, cfg.Server.Token)
	mux.HandleFunc("/ws/rankings", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz competition service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down")
	case <-ctx.Done():
		log.Info("context canceled, shutting down")
	}

	stopWorker()
	<-workerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildStore picks the backing store from config: Redis (with an optional
// Postgres question bank behind it) in production, in-memory otherwise.
func buildStore(ctx context.Context, cfg config.Config) (app.ContentStore, func(), error) {
	if cfg.Redis.Addr == "" {
		return memory.NewStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	var loader redisstore.QuestionLoader
	var persister redisstore.QuestionPersister
	cleanup := func() { _ = client.Close() }

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		questions := pgstore.NewQuestionStore(pool)
		loader = questions
		persister = questions
		cleanup = func() {
			pool.Close()
			_ = client.Close()
		}
	}

	ttl := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	return redisstore.NewStore(client, loader, persister, ttl), cleanup, nil
}
