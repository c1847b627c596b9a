// Package domain defines the outbox message entity.
package domain

import (
	"time"

	"github.com/google/uuid"

	messaging "github.com/allisson/relay/internal/messaging/domain"
)

// OutboxMessage is an outbound message written in the same transaction as
// the business change it announces. SentTime is nil while the message is
// pending and, once set, is never cleared.
type OutboxMessage struct {
	ID            uuid.UUID
	Body          []byte
	Headers       messaging.Headers
	SourceAddress string
	// DestinationAddress is nil for publishes and set for point-to-point sends.
	DestinationAddress *string
	MessageType        string
	ContentType        string
	CorrelationID      *uuid.UUID
	EnqueuedTime       time.Time
	SentTime           *time.Time
}

// IsPending reports whether the message still awaits delivery.
func (m *OutboxMessage) IsPending() bool {
	return m.SentTime == nil
}

// IsPublish reports whether the message is routed by type rather than sent to an address.
func (m *OutboxMessage) IsPublish() bool {
	return m.DestinationAddress == nil
}

// Envelope builds the transport envelope for the message.
func (m *OutboxMessage) Envelope(sentTime time.Time) *messaging.Envelope {
	return &messaging.Envelope{
		MessageID:     m.ID,
		CorrelationID: m.CorrelationID,
		MessageType:   m.MessageType,
		ContentType:   m.ContentType,
		Body:          m.Body,
		Headers:       m.Headers.Clone(),
		SentTime:      sentTime,
	}
}
