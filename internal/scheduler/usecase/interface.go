// Package usecase implements the persisted message scheduler: producer-side
// scheduling and cancellation, and the background loop that dispatches due messages.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/transport"
	"github.com/allisson/relay/internal/scheduler/domain"
)

// ScheduledMessageRepository persists scheduled messages.
type ScheduledMessageRepository interface {
	Add(ctx context.Context, msg *domain.ScheduledMessage) error
	// GetDue returns up to maxCount pending messages scheduled at or before now, oldest first.
	GetDue(ctx context.Context, now time.Time, maxCount int) ([]*domain.ScheduledMessage, error)
	// MarkDispatched is a no-op for dispatched or unknown tokens.
	MarkDispatched(ctx context.Context, tokenID uuid.UUID, dispatchedTime time.Time) error
	// Cancel deletes a pending message and reports whether one was deleted.
	Cancel(ctx context.Context, tokenID uuid.UUID) (bool, error)
}

// Bus delivers envelopes either to an explicit address or by message type.
type Bus interface {
	transport.Sender
	transport.Publisher
}

// RawSchedule describes a message whose body is already serialized.
type RawSchedule struct {
	MessageType string
	ContentType string
	Body        []byte
	Headers     messaging.Headers
	// Destination is zero for a publish.
	Destination   messaging.Address
	ScheduledTime time.Time
}

// SchedulerUseCase schedules and cancels delayed messages.
type SchedulerUseCase interface {
	ScheduleSend(
		ctx context.Context,
		destination messaging.Address,
		payload any,
		at time.Time,
		opts ...Option,
	) (*ScheduleHandle, error)
	ScheduleSendIn(
		ctx context.Context,
		destination messaging.Address,
		payload any,
		delay time.Duration,
		opts ...Option,
	) (*ScheduleHandle, error)
	SchedulePublish(ctx context.Context, payload any, at time.Time, opts ...Option) (*ScheduleHandle, error)
	SchedulePublishIn(ctx context.Context, payload any, delay time.Duration, opts ...Option) (*ScheduleHandle, error)
	ScheduleRaw(ctx context.Context, raw RawSchedule) (*ScheduleHandle, error)
	Cancel(ctx context.Context, tokenID uuid.UUID) (bool, error)
	DispatchOnce(ctx context.Context) (DispatchResult, error)
}

type canceller interface {
	Cancel(ctx context.Context, tokenID uuid.UUID) (bool, error)
}

// ScheduleHandle refers to one scheduled message.
type ScheduleHandle struct {
	TokenID       uuid.UUID
	ScheduledTime time.Time
	canceller     canceller
}

// Cancel removes the message if it has not been dispatched yet. It reports
// whether a pending message was removed; cancelling twice or after dispatch
// has no effect.
func (h *ScheduleHandle) Cancel(ctx context.Context) (bool, error) {
	return h.canceller.Cancel(ctx, h.TokenID)
}
