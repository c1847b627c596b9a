package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/relay/internal/app"
	"github.com/allisson/relay/internal/config"
)

// Runner is a polling loop that runs until its context is done.
type Runner interface {
	Run(ctx context.Context) error
}

// NamedRunner pairs a Runner with the name used in logs.
type NamedRunner struct {
	Name   string
	Runner Runner
}

// Server is a blocking server with graceful shutdown, such as the metrics server.
type Server interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServerRunner adapts a Server to a Runner: it serves until ctx is done and
// then shuts the server down within Timeout.
type ServerRunner struct {
	Server  Server
	Timeout time.Duration
}

// Run implements Runner.
func (r ServerRunner) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- r.Server.Start(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()
	if err := r.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// RunWorkers runs every runner until ctx is done. The first runner to fail
// cancels the others and its error is returned.
func RunWorkers(ctx context.Context, logger *slog.Logger, runners ...NamedRunner) error {
	if len(runners) == 0 {
		return fmt.Errorf("no workers to run")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error {
			logger.Info("worker started", slog.String("worker", r.Name))
			if err := r.Runner.Run(ctx); err != nil {
				return fmt.Errorf("%s: %w", r.Name, err)
			}
			logger.Info("worker stopped", slog.String("worker", r.Name))
			return nil
		})
	}
	return g.Wait()
}

// RunWorker runs the outbox dispatcher and the message scheduler until
// receiving SIGINT/SIGTERM. Either loop can be disabled. The metrics server
// runs alongside them when metrics are enabled.
func RunWorker(ctx context.Context, version string, outbox, scheduler bool) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting worker",
		slog.String("version", version),
		slog.Bool("outbox", outbox),
		slog.Bool("scheduler", scheduler),
	)

	defer closeContainer(container, logger)

	var runners []NamedRunner
	if outbox {
		dispatcher, err := container.Dispatcher()
		if err != nil {
			return fmt.Errorf("failed to initialize outbox dispatcher: %w", err)
		}
		runners = append(runners, NamedRunner{Name: "outbox-dispatcher", Runner: dispatcher})
	}
	if scheduler {
		s, err := container.Scheduler()
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		runners = append(runners, NamedRunner{Name: "scheduler", Runner: s})
	}
	if len(runners) == 0 {
		return fmt.Errorf("nothing to run: both --outbox and --scheduler are disabled")
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		runners = append(runners, NamedRunner{
			Name:   "metrics-server",
			Runner: ServerRunner{Server: metricsServer, Timeout: cfg.DBConnMaxLifetime},
		})
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return RunWorkers(ctx, logger, runners...)
}
