// Package mocks provides mock implementations of the scheduler use case for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/scheduler/usecase"
)

// MockSchedulerUseCase is a mock implementation of SchedulerUseCase.
type MockSchedulerUseCase struct {
	mock.Mock
}

func handle(args mock.Arguments) (*usecase.ScheduleHandle, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ScheduleHandle), args.Error(1)
}

// ScheduleSend mocks the ScheduleSend method.
func (m *MockSchedulerUseCase) ScheduleSend(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	at time.Time,
	opts ...usecase.Option,
) (*usecase.ScheduleHandle, error) {
	return handle(m.Called(ctx, destination, payload, at))
}

// ScheduleSendIn mocks the ScheduleSendIn method.
func (m *MockSchedulerUseCase) ScheduleSendIn(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	delay time.Duration,
	opts ...usecase.Option,
) (*usecase.ScheduleHandle, error) {
	return handle(m.Called(ctx, destination, payload, delay))
}

// SchedulePublish mocks the SchedulePublish method.
func (m *MockSchedulerUseCase) SchedulePublish(
	ctx context.Context,
	payload any,
	at time.Time,
	opts ...usecase.Option,
) (*usecase.ScheduleHandle, error) {
	return handle(m.Called(ctx, payload, at))
}

// SchedulePublishIn mocks the SchedulePublishIn method.
func (m *MockSchedulerUseCase) SchedulePublishIn(
	ctx context.Context,
	payload any,
	delay time.Duration,
	opts ...usecase.Option,
) (*usecase.ScheduleHandle, error) {
	return handle(m.Called(ctx, payload, delay))
}

// ScheduleRaw mocks the ScheduleRaw method.
func (m *MockSchedulerUseCase) ScheduleRaw(
	ctx context.Context,
	raw usecase.RawSchedule,
) (*usecase.ScheduleHandle, error) {
	return handle(m.Called(ctx, raw))
}

// Cancel mocks the Cancel method.
func (m *MockSchedulerUseCase) Cancel(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// DispatchOnce mocks the DispatchOnce method.
func (m *MockSchedulerUseCase) DispatchOnce(ctx context.Context) (usecase.DispatchResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(usecase.DispatchResult), args.Error(1)
}
