// Package domain defines the persisted saga state entity.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/errors"
)

// ErrSagaStateNotFound indicates no state is stored for a correlation id and state type.
var ErrSagaStateNotFound = errors.Wrap(errors.ErrNotFound, "saga state not found")

// ErrEmptyStateType indicates a saga state without a state type.
var ErrEmptyStateType = errors.Wrap(errors.ErrInvalidInput, "saga state type is required")

// SagaState is the durable state of one saga instance, keyed by
// (CorrelationID, StateType).
type SagaState struct {
	CorrelationID  uuid.UUID
	StateType      string
	StateData      []byte
	ConversationID *uuid.UUID
	UpdatedTime    time.Time
}
