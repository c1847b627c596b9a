package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	outboxUsecase "github.com/allisson/relay/internal/outbox/usecase"
	schedulerUsecase "github.com/allisson/relay/internal/scheduler/usecase"
)

// ScheduledDispatcher runs one scheduler dispatch cycle.
type ScheduledDispatcher interface {
	DispatchOnce(ctx context.Context) (schedulerUsecase.DispatchResult, error)
}

type dispatchReport struct {
	Outbox    *outboxUsecase.DispatchResult    `json:"outbox,omitempty"`
	Scheduler *schedulerUsecase.DispatchResult `json:"scheduler,omitempty"`
}

// RunDispatchOnce runs a single cycle of each non-nil dispatcher and prints the counts.
// Useful for draining a backlog from a cron job instead of a long-running worker.
func RunDispatchOnce(
	ctx context.Context,
	outbox outboxUsecase.DispatchUseCase,
	scheduler ScheduledDispatcher,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var report dispatchReport
	if outbox != nil {
		result, err := outbox.DispatchOnce(ctx)
		if err != nil {
			return fmt.Errorf("failed to dispatch outbox messages: %w", err)
		}
		report.Outbox = &result
	}
	if scheduler != nil {
		result, err := scheduler.DispatchOnce(ctx)
		if err != nil {
			return fmt.Errorf("failed to dispatch scheduled messages: %w", err)
		}
		report.Scheduler = &result
	}

	logger.Info("dispatch cycle completed",
		slog.Bool("outbox", report.Outbox != nil),
		slog.Bool("scheduler", report.Scheduler != nil),
	)

	if format == "json" {
		return writeJSON(writer, report)
	}
	return outputDispatchText(writer, report)
}

func outputDispatchText(w io.Writer, report dispatchReport) error {
	if o := report.Outbox; o != nil {
		if _, err := fmt.Fprintf(w,
			"Outbox: processed=%d sent=%d failed=%d dead_lettered=%d dropped=%d state_update_failed=%d\n",
			o.Processed, o.Sent, o.Failed, o.DeadLettered, o.Dropped, o.StateUpdateFailed,
		); err != nil {
			return err
		}
	}
	if s := report.Scheduler; s != nil {
		if _, err := fmt.Fprintf(w,
			"Scheduler: processed=%d dispatched=%d failed=%d dead_lettered=%d dropped=%d state_update_failed=%d\n",
			s.Processed, s.Dispatched, s.Failed, s.DeadLettered, s.Dropped, s.StateUpdateFailed,
		); err != nil {
			return err
		}
	}
	return nil
}
