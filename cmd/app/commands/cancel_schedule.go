package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	schedulerUsecase "github.com/allisson/relay/internal/scheduler/usecase"
)

// RunCancelSchedule cancels a pending scheduled message by token.
// Cancelling an unknown or already dispatched token is reported, not treated as an error.
func RunCancelSchedule(
	ctx context.Context,
	useCase schedulerUsecase.SchedulerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	token string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tokenID, err := uuid.Parse(token)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}

	cancelled, err := useCase.Cancel(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to cancel scheduled message: %w", err)
	}

	logger.Info("cancel schedule completed",
		slog.String("token_id", tokenID.String()),
		slog.Bool("cancelled", cancelled),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"token_id":  tokenID.String(),
			"cancelled": cancelled,
		})
	}

	if cancelled {
		_, err = fmt.Fprintf(writer, "Cancelled scheduled message %s\n", tokenID)
	} else {
		_, err = fmt.Fprintf(writer, "No pending scheduled message with token %s\n", tokenID)
	}
	return err
}
