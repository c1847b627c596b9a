// Package usecase implements the idempotent consumer guard on top of the inbox store.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/database"
	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/inbox/domain"
)

// InboxRepository persists per-consumer message receipts.
type InboxRepository interface {
	HasBeenProcessed(ctx context.Context, messageID uuid.UUID, consumerID string) (bool, error)
	// RecordReceived returns false when the receipt already exists.
	RecordReceived(ctx context.Context, messageID uuid.UUID, consumerID string, receivedTime time.Time) (bool, error)
	MarkProcessed(ctx context.Context, messageID uuid.UUID, consumerID string, processedTime time.Time) error
}

// Handler is the business logic run for a message the consumer has not seen.
// It receives the transactional context, so its writes (including outbox
// messages) commit together with the receipt.
type Handler func(ctx context.Context) error

// Guard runs handlers at most once per message and consumer.
type Guard struct {
	txManager database.TxManager
	repo      InboxRepository
	clock     clock.Clock
	logger    *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(txManager database.TxManager, repo InboxRepository, clk clock.Clock, logger *slog.Logger) *Guard {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{txManager: txManager, repo: repo, clock: clk, logger: logger}
}

// Handle records the receipt, runs fn and marks the message processed in one
// transaction. A duplicate delivery skips fn and returns false with no error.
// If fn fails the transaction rolls back, so a redelivery runs fn again.
func (g *Guard) Handle(ctx context.Context, messageID uuid.UUID, consumerID string, fn Handler) (bool, error) {
	if consumerID == "" {
		return false, domain.ErrEmptyConsumerID
	}

	handled := false
	err := g.txManager.WithTx(ctx, func(ctx context.Context) error {
		recorded, err := g.repo.RecordReceived(ctx, messageID, consumerID, g.clock.Now())
		if err != nil {
			return errors.Wrap(err, "record inbox receipt")
		}
		if !recorded {
			g.logger.DebugContext(ctx, "duplicate delivery skipped",
				slog.String("message_id", messageID.String()),
				slog.String("consumer_id", consumerID),
			)
			return nil
		}

		if err := fn(ctx); err != nil {
			return err
		}

		if err := g.repo.MarkProcessed(ctx, messageID, consumerID, g.clock.Now()); err != nil {
			return errors.Wrap(err, "mark inbox receipt processed")
		}
		handled = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return handled, nil
}

// Processed reports whether consumerID already handled messageID.
func (g *Guard) Processed(ctx context.Context, messageID uuid.UUID, consumerID string) (bool, error) {
	if consumerID == "" {
		return false, domain.ErrEmptyConsumerID
	}
	return g.repo.HasBeenProcessed(ctx, messageID, consumerID)
}
