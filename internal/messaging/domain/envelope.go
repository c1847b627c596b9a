package domain

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is a message as handed to a transport.
type Envelope struct {
	MessageID     uuid.UUID
	CorrelationID *uuid.UUID
	MessageType   string
	ContentType   string
	Body          []byte
	Headers       Headers
	SentTime      time.Time
}

// NewID returns a new time-ordered identifier. Its 36 character text form
// sorts in creation order.
func NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
