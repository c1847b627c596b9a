// Package domain defines the inbox receipt entity.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// InboxState records that ConsumerID received MessageID. The pair is unique,
// so deduplication is per consumer: two consumers of the same message each
// own a row.
type InboxState struct {
	MessageID     uuid.UUID
	ConsumerID    string
	ReceivedTime  time.Time
	ProcessedTime *time.Time
}

// IsProcessed reports whether the consumer finished handling the message.
func (s *InboxState) IsProcessed() bool {
	return s.ProcessedTime != nil
}
