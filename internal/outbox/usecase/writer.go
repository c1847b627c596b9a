package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/errors"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/registry"
	"github.com/allisson/relay/internal/messaging/serializer"
	"github.com/allisson/relay/internal/outbox/domain"
)

type writeOptions struct {
	headers       messaging.Headers
	correlationID *uuid.UUID
	contentType   string
	sourceAddress string
}

// Option customizes a message written by the Writer.
type Option func(*writeOptions)

// WithHeaders adds headers to the message.
func WithHeaders(headers messaging.Headers) Option {
	return func(o *writeOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithCorrelationID sets the correlation id.
func WithCorrelationID(id uuid.UUID) Option {
	return func(o *writeOptions) { o.correlationID = &id }
}

// WithContentType selects a serializer other than the default one.
func WithContentType(contentType string) Option {
	return func(o *writeOptions) { o.contentType = contentType }
}

// WithSourceAddress overrides the writer's source address.
func WithSourceAddress(address string) Option {
	return func(o *writeOptions) { o.sourceAddress = address }
}

// Writer serializes payloads of registered types and adds them to the outbox.
// Calls must run inside the caller's transaction (see database.TxManager)
// for the message to commit together with the business change.
type Writer struct {
	repo          OutboxRepository
	types         *registry.Registry
	serializers   *serializer.Set
	clock         clock.Clock
	sourceAddress string
}

// NewWriter creates a Writer. sourceAddress identifies the producing service.
func NewWriter(
	repo OutboxRepository,
	types *registry.Registry,
	serializers *serializer.Set,
	clk clock.Clock,
	sourceAddress string,
) *Writer {
	if clk == nil {
		clk = clock.System{}
	}
	return &Writer{
		repo:          repo,
		types:         types,
		serializers:   serializers,
		clock:         clk,
		sourceAddress: sourceAddress,
	}
}

// Send enqueues payload for delivery to destination.
func (w *Writer) Send(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	opts ...Option,
) (uuid.UUID, error) {
	if destination.IsZero() {
		return uuid.Nil, errors.Wrap(messaging.ErrInvalidAddress, "destination is required")
	}
	address := destination.String()
	return w.add(ctx, &address, payload, opts)
}

// Publish enqueues payload for delivery to the default route of its type.
func (w *Writer) Publish(ctx context.Context, payload any, opts ...Option) (uuid.UUID, error) {
	return w.add(ctx, nil, payload, opts)
}

func (w *Writer) add(ctx context.Context, destination *string, payload any, opts []Option) (uuid.UUID, error) {
	o := writeOptions{headers: messaging.Headers{}, sourceAddress: w.sourceAddress}
	for _, opt := range opts {
		opt(&o)
	}

	messageType, err := w.types.NameOf(payload)
	if err != nil {
		return uuid.Nil, err
	}

	ser := w.serializers.Default()
	if o.contentType != "" {
		if ser, err = w.serializers.Get(o.contentType); err != nil {
			return uuid.Nil, err
		}
	}

	body, err := ser.Serialize(messageType, payload)
	if err != nil {
		return uuid.Nil, err
	}

	msg := &domain.OutboxMessage{
		ID:                 messaging.NewID(),
		Body:               body,
		Headers:            o.headers,
		SourceAddress:      o.sourceAddress,
		DestinationAddress: destination,
		MessageType:        messageType,
		ContentType:        ser.ContentType(),
		CorrelationID:      o.correlationID,
		EnqueuedTime:       w.clock.Now().UTC(),
	}
	if err := w.repo.Add(ctx, msg); err != nil {
		return uuid.Nil, errors.Wrap(err, "add outbox message")
	}
	return msg.ID, nil
}
