// Package worker runs a unit of work on a fixed interval until stopped.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/allisson/relay/internal/errors"
)

// ErrAlreadyRunning is returned by Start on a loop that is already running.
var ErrAlreadyRunning = errors.Wrap(errors.ErrConflict, "loop already running")

// Func is one iteration. A returned error means the iteration could not do
// its work at all (for example the store was unreachable) and the next
// iteration is delayed with exponential backoff.
type Func func(ctx context.Context) error

// Config holds loop timing.
type Config struct {
	// Name identifies the loop in logs.
	Name string
	// Interval is the delay between successful iterations.
	Interval time.Duration
	// RetryDelay is the first delay after a failed iteration. Zero uses Interval.
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff. Zero uses ten times Interval.
	MaxRetryDelay time.Duration
}

// Loop owns a background goroutine and its cancellation. Iterations run on a
// context detached from the stop signal, so an in-flight send completes
// before Stop returns; cancellation is only observed between iterations.
type Loop struct {
	config Config
	fn     Func
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Loop. It does nothing until Start or Run is called.
func New(config Config, fn Func, logger *slog.Logger) *Loop {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = config.Interval
	}
	if config.MaxRetryDelay <= 0 {
		config.MaxRetryDelay = 10 * config.Interval
	}
	if config.MaxRetryDelay < config.RetryDelay {
		config.MaxRetryDelay = config.RetryDelay
	}
	return &Loop{config: config, fn: fn, logger: logger}
}

// Run iterates until ctx is done. Cancellation is a clean exit and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	retry := l.newBackOff()
	work := context.WithoutCancel(ctx)

	l.log(ctx, slog.LevelInfo, "loop started",
		slog.Duration("interval", l.config.Interval),
	)

	for {
		if ctx.Err() != nil {
			l.log(ctx, slog.LevelInfo, "loop stopped")
			return nil
		}

		delay := l.config.Interval
		if err := l.fn(work); err != nil {
			delay = retry.NextBackOff()
			l.log(ctx, slog.LevelError, "loop iteration failed",
				slog.Any("error", err),
				slog.Duration("retry_in", delay),
			)
		} else {
			retry.Reset()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.log(ctx, slog.LevelInfo, "loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Start runs the loop in a new goroutine.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		return errors.Wrapf(ErrAlreadyRunning, "%s", l.config.Name)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go func() {
		defer close(done)
		_ = l.Run(runCtx)
	}()
	return nil
}

// Stop cancels a started loop and waits for its goroutine to finish or for
// ctx to expire. Stopping a loop that is not running is a no-op.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for %s loop to stop", l.config.Name)
	}
}

// Running reports whether Start was called without a matching Stop.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != nil
}

func (l *Loop) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.config.RetryDelay
	b.MaxInterval = l.config.MaxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (l *Loop) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("loop", l.config.Name))
	l.logger.LogAttrs(ctx, level, msg, attrs...)
}
