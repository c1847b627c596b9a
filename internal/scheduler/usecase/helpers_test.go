package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/messaging/deadletter"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/registry"
	"github.com/allisson/relay/internal/messaging/serializer"
	"github.com/allisson/relay/internal/messaging/transport"
	"github.com/allisson/relay/internal/messaging/transport/transporttest"
	"github.com/allisson/relay/internal/scheduler/domain"
)

const deadLetterAddress = "mem://scheduler-dead-letters"

type reminderDue struct {
	PatientID string `json:"patient_id"`
}

// memoryRepository is an in-memory ScheduledMessageRepository.
type memoryRepository struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*domain.ScheduledMessage
	dueErr   error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{messages: make(map[uuid.UUID]*domain.ScheduledMessage)}
}

func (r *memoryRepository) Add(_ context.Context, msg *domain.ScheduledMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *msg
	r.messages[msg.TokenID] = &copied
	return nil
}

func (r *memoryRepository) GetDue(_ context.Context, now time.Time, maxCount int) ([]*domain.ScheduledMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dueErr != nil {
		return nil, r.dueErr
	}

	due := make([]*domain.ScheduledMessage, 0)
	for _, msg := range r.messages {
		if msg.IsDue(now) {
			copied := *msg
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledTime.Before(due[j].ScheduledTime) })
	if len(due) > maxCount {
		due = due[:maxCount]
	}
	return due, nil
}

func (r *memoryRepository) MarkDispatched(_ context.Context, tokenID uuid.UUID, dispatchedTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.messages[tokenID]; ok && msg.DispatchedTime == nil {
		msg.DispatchedTime = &dispatchedTime
	}
	return nil
}

func (r *memoryRepository) Cancel(_ context.Context, tokenID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[tokenID]
	if !ok || msg.DispatchedTime != nil {
		return false, nil
	}
	delete(r.messages, tokenID)
	return true, nil
}

func (r *memoryRepository) get(tokenID uuid.UUID) (*domain.ScheduledMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[tokenID]
	if !ok {
		return nil, false
	}
	copied := *msg
	return &copied, true
}

func (r *memoryRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type fixture struct {
	repo      *memoryRepository
	recorder  *transporttest.Recorder
	clock     *clock.Manual
	scheduler *Scheduler
}

func newFixture(t *testing.T, deadLetter string) *fixture {
	t.Helper()

	types := registry.New()
	require.NoError(t, registry.Register[reminderDue](types, "Clinic.ReminderDue"))

	f := &fixture{
		repo:     newMemoryRepository(),
		recorder: transporttest.NewRecorder(),
		clock:    clock.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)),
	}

	var dlq messaging.Address
	if deadLetter != "" {
		dlq = messaging.MustParseAddress(deadLetter)
	}

	f.scheduler = NewScheduler(
		Config{BatchSize: 10, PollInterval: 10 * time.Millisecond},
		f.repo,
		types,
		serializer.NewSet(serializer.NewJSON()),
		transport.NewBus(f.recorder, transport.NewPrefixTopology("mem://")),
		deadletter.NewSender(f.recorder, dlq, f.clock, nil),
		f.clock,
		nil,
		nil,
	)
	return f
}

// store persists a row directly, bypassing producer validation.
func (f *fixture) store(t *testing.T, msg domain.ScheduledMessage) *domain.ScheduledMessage {
	t.Helper()
	msg.TokenID = messaging.NewID()
	if msg.ScheduledTime.IsZero() {
		msg.ScheduledTime = f.clock.Now().Add(-time.Second)
	}
	if msg.ContentType == "" {
		msg.ContentType = messaging.ContentTypeJSON
	}
	require.NoError(t, f.repo.Add(context.Background(), &msg))
	return &msg
}
