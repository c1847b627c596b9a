package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/outbox/domain"
)

// memoryRepository is an in-memory OutboxRepository.
type memoryRepository struct {
	mu          sync.Mutex
	messages    map[uuid.UUID]*domain.OutboxMessage
	pendingErr  error
	markSentErr error
	markSent    int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{messages: make(map[uuid.UUID]*domain.OutboxMessage)}
}

func (r *memoryRepository) Add(_ context.Context, msg *domain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.messages[msg.ID] = &copied
	return nil
}

func (r *memoryRepository) GetPending(_ context.Context, maxCount int) ([]*domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pendingErr != nil {
		return nil, r.pendingErr
	}

	pending := make([]*domain.OutboxMessage, 0)
	for _, msg := range r.messages {
		if msg.IsPending() {
			copied := *msg
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].EnqueuedTime.Equal(pending[j].EnqueuedTime) {
			return pending[i].ID.String() < pending[j].ID.String()
		}
		return pending[i].EnqueuedTime.Before(pending[j].EnqueuedTime)
	})
	if len(pending) > maxCount {
		pending = pending[:maxCount]
	}
	return pending, nil
}

func (r *memoryRepository) MarkSent(_ context.Context, id uuid.UUID, sentTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.markSentErr != nil {
		return r.markSentErr
	}
	r.markSent++
	if msg, ok := r.messages[id]; ok && msg.SentTime == nil {
		msg.SentTime = &sentTime
	}
	return nil
}

func (r *memoryRepository) get(id uuid.UUID) *domain.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *r.messages[id]
	return &copied
}
