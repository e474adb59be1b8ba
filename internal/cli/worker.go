package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quiz-competition-service/internal/app"
	"quiz-competition-service/internal/config"
)

// NewWorkerCmd runs the lifecycle worker as a standalone process, for
// deployments that keep it out of the API server.
func NewWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the quiz lifecycle worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), *configPath)
		},
	}
}

func runWorker(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	interval := config.Duration(cfg.Worker.Interval, 10*time.Second)
	worker := app.NewWorker(store, interval, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	worker.Run(runCtx)
	return nil
}
