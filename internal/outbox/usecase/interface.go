// Package usecase implements the producer-side outbox writer and the
// background dispatcher that relays pending rows to the transport.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/transport"
	"github.com/allisson/relay/internal/outbox/domain"
)

// OutboxRepository persists outbox messages.
type OutboxRepository interface {
	// Add inserts msg, joining the transaction carried by ctx when present.
	Add(ctx context.Context, msg *domain.OutboxMessage) error
	// GetPending returns up to maxCount unsent messages, oldest first.
	GetPending(ctx context.Context, maxCount int) ([]*domain.OutboxMessage, error)
	// MarkSent marks a pending message as sent. Already sent or unknown ids are ignored.
	MarkSent(ctx context.Context, id uuid.UUID, sentTime time.Time) error
}

// Bus delivers envelopes either to an explicit address or by message type.
type Bus interface {
	transport.Sender
	transport.Publisher
}

// OutboxWriter enqueues typed payloads in the caller's transaction.
type OutboxWriter interface {
	Send(ctx context.Context, destination messaging.Address, payload any, opts ...Option) (uuid.UUID, error)
	Publish(ctx context.Context, payload any, opts ...Option) (uuid.UUID, error)
}

// DispatchUseCase runs dispatch cycles.
type DispatchUseCase interface {
	DispatchOnce(ctx context.Context) (DispatchResult, error)
}
