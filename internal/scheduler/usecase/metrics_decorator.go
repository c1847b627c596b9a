package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/metrics"
)

// schedulerUseCaseWithMetrics decorates SchedulerUseCase with metrics instrumentation.
type schedulerUseCaseWithMetrics struct {
	next    SchedulerUseCase
	metrics metrics.BusinessMetrics
}

// NewSchedulerUseCaseWithMetrics wraps a SchedulerUseCase with metrics recording.
// Handles it returns cancel through the wrapper.
func NewSchedulerUseCaseWithMetrics(useCase SchedulerUseCase, m metrics.BusinessMetrics) SchedulerUseCase {
	return &schedulerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *schedulerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, metrics.DomainScheduler, operation, status)
	s.metrics.RecordDuration(ctx, metrics.DomainScheduler, operation, time.Since(start), status)
}

func (s *schedulerUseCaseWithMetrics) rebind(handle *ScheduleHandle) *ScheduleHandle {
	if handle != nil {
		handle.canceller = s
	}
	return handle
}

// ScheduleSend records metrics for scheduled sends.
func (s *schedulerUseCaseWithMetrics) ScheduleSend(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	at time.Time,
	opts ...Option,
) (*ScheduleHandle, error) {
	start := time.Now()
	handle, err := s.next.ScheduleSend(ctx, destination, payload, at, opts...)
	s.record(ctx, "schedule_send", start, err)
	return s.rebind(handle), err
}

// ScheduleSendIn records metrics for delayed sends.
func (s *schedulerUseCaseWithMetrics) ScheduleSendIn(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	delay time.Duration,
	opts ...Option,
) (*ScheduleHandle, error) {
	start := time.Now()
	handle, err := s.next.ScheduleSendIn(ctx, destination, payload, delay, opts...)
	s.record(ctx, "schedule_send", start, err)
	return s.rebind(handle), err
}

// SchedulePublish records metrics for scheduled publishes.
func (s *schedulerUseCaseWithMetrics) SchedulePublish(
	ctx context.Context,
	payload any,
	at time.Time,
	opts ...Option,
) (*ScheduleHandle, error) {
	start := time.Now()
	handle, err := s.next.SchedulePublish(ctx, payload, at, opts...)
	s.record(ctx, "schedule_publish", start, err)
	return s.rebind(handle), err
}

// SchedulePublishIn records metrics for delayed publishes.
func (s *schedulerUseCaseWithMetrics) SchedulePublishIn(
	ctx context.Context,
	payload any,
	delay time.Duration,
	opts ...Option,
) (*ScheduleHandle, error) {
	start := time.Now()
	handle, err := s.next.SchedulePublishIn(ctx, payload, delay, opts...)
	s.record(ctx, "schedule_publish", start, err)
	return s.rebind(handle), err
}

// ScheduleRaw records metrics for raw schedules.
func (s *schedulerUseCaseWithMetrics) ScheduleRaw(ctx context.Context, raw RawSchedule) (*ScheduleHandle, error) {
	start := time.Now()
	handle, err := s.next.ScheduleRaw(ctx, raw)
	s.record(ctx, "schedule_raw", start, err)
	return s.rebind(handle), err
}

// Cancel records metrics for cancellations.
func (s *schedulerUseCaseWithMetrics) Cancel(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	start := time.Now()
	cancelled, err := s.next.Cancel(ctx, tokenID)
	s.record(ctx, "cancel", start, err)
	return cancelled, err
}

// DispatchOnce delegates; per-message dispatch metrics are recorded by the scheduler.
func (s *schedulerUseCaseWithMetrics) DispatchOnce(ctx context.Context) (DispatchResult, error) {
	return s.next.DispatchOnce(ctx)
}
