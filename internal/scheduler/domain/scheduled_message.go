package domain

import (
	"time"

	"github.com/google/uuid"

	messaging "github.com/allisson/relay/internal/messaging/domain"
)

// ScheduledMessage is a message held back until ScheduledTime. A send keeps
// its destination in the ScheduledDestinationAddress header; a publish has none.
type ScheduledMessage struct {
	TokenID        uuid.UUID
	MessageType    string
	Body           []byte
	Headers        messaging.Headers
	ContentType    string
	ScheduledTime  time.Time
	DispatchedTime *time.Time
}

// IsPending reports whether the message still awaits dispatch.
func (m *ScheduledMessage) IsPending() bool {
	return m.DispatchedTime == nil
}

// IsDue reports whether the message is pending and its time has come.
func (m *ScheduledMessage) IsDue(now time.Time) bool {
	return m.IsPending() && !m.ScheduledTime.After(now)
}

// HasDestination reports whether the destination header is present, whatever its value.
func (m *ScheduledMessage) HasDestination() bool {
	_, ok := m.Headers[messaging.HeaderScheduledDestination]
	return ok
}

// Destination parses the destination header.
func (m *ScheduledMessage) Destination() (messaging.Address, error) {
	raw, ok := m.Headers.GetString(messaging.HeaderScheduledDestination)
	if !ok {
		return messaging.Address{}, messaging.ErrInvalidAddress
	}
	return messaging.ParseAddress(raw)
}

// ForwardHeaders returns the headers sent with the dispatched message.
func (m *ScheduledMessage) ForwardHeaders() messaging.Headers {
	return m.Headers.Without(messaging.HeaderScheduledDestination)
}
