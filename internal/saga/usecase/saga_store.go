// Package usecase provides typed access to persisted saga state.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/serializer"
	"github.com/allisson/relay/internal/saga/domain"
)

// SagaStateRepository persists saga state keyed by (correlation id, state type).
type SagaStateRepository interface {
	// Load returns domain.ErrSagaStateNotFound for a missing key.
	Load(ctx context.Context, correlationID uuid.UUID, stateType string) (*domain.SagaState, error)
	// Save upserts on the composite key.
	Save(ctx context.Context, state *domain.SagaState) error
	FindByConversationID(ctx context.Context, conversationID uuid.UUID) ([]*domain.SagaState, error)
	Delete(ctx context.Context, correlationID uuid.UUID, stateType string) error
}

// SagaStore wraps a SagaStateRepository with a serializer so sagas can load
// and save their own state types.
type SagaStore struct {
	repo       SagaStateRepository
	serializer serializer.Serializer
	clock      clock.Clock
}

// NewSagaStore creates a SagaStore.
func NewSagaStore(repo SagaStateRepository, ser serializer.Serializer, clk clock.Clock) *SagaStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &SagaStore{repo: repo, serializer: ser, clock: clk}
}

// Load returns the raw state for the key.
func (s *SagaStore) Load(ctx context.Context, correlationID uuid.UUID, stateType string) (*domain.SagaState, error) {
	if stateType == "" {
		return nil, domain.ErrEmptyStateType
	}
	return s.repo.Load(ctx, correlationID, stateType)
}

// Save stores raw state data for the key.
func (s *SagaStore) Save(
	ctx context.Context,
	correlationID uuid.UUID,
	stateType string,
	stateData []byte,
	conversationID *uuid.UUID,
) error {
	if stateType == "" {
		return domain.ErrEmptyStateType
	}
	return s.repo.Save(ctx, &domain.SagaState{
		CorrelationID:  correlationID,
		StateType:      stateType,
		StateData:      stateData,
		ConversationID: conversationID,
		UpdatedTime:    s.clock.Now().UTC(),
	})
}

// LoadInto decodes the state stored for the key into target.
func (s *SagaStore) LoadInto(ctx context.Context, correlationID uuid.UUID, stateType string, target any) error {
	state, err := s.Load(ctx, correlationID, stateType)
	if err != nil {
		return err
	}
	return s.serializer.Deserialize(stateType, state.StateData, target)
}

// SaveState encodes state and stores it for the key.
func (s *SagaStore) SaveState(
	ctx context.Context,
	correlationID uuid.UUID,
	stateType string,
	state any,
	conversationID *uuid.UUID,
) error {
	data, err := s.serializer.Serialize(stateType, state)
	if err != nil {
		return errors.Wrapf(err, "encode saga state %s", stateType)
	}
	return s.Save(ctx, correlationID, stateType, data, conversationID)
}

// FindByConversationID returns every state sharing conversationID.
func (s *SagaStore) FindByConversationID(ctx context.Context, conversationID uuid.UUID) ([]*domain.SagaState, error) {
	return s.repo.FindByConversationID(ctx, conversationID)
}

// Complete deletes the state for the key once the saga has finished.
func (s *SagaStore) Complete(ctx context.Context, correlationID uuid.UUID, stateType string) error {
	if stateType == "" {
		return domain.ErrEmptyStateType
	}
	return s.repo.Delete(ctx, correlationID, stateType)
}
