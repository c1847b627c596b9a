package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/relay/internal/scheduler/usecase"
	usecaseMocks "github.com/allisson/relay/internal/scheduler/usecase/mocks"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordBatchSize(ctx context.Context, domain string, size int) {
	m.Called(ctx, domain, size)
}

func TestSchedulerUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockSchedulerUseCase{}
	mockMetrics := &mockBusinessMetrics{}
	uc := usecase.NewSchedulerUseCaseWithMetrics(mockNext, mockMetrics)

	ctx := context.Background()
	tokenID := uuid.New()

	t.Run("SchedulePublishIn success rebinds cancel", func(t *testing.T) {
		payload := struct{}{}
		mockNext.On("SchedulePublishIn", ctx, payload, time.Minute).
			Return(&usecase.ScheduleHandle{TokenID: tokenID}, nil).
			Once()
		mockMetrics.On("RecordOperation", ctx, "scheduler", "schedule_publish", "success").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "scheduler", "schedule_publish",
			mock.AnythingOfType("time.Duration"), "success").Return().Once()

		handle, err := uc.SchedulePublishIn(ctx, payload, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, tokenID, handle.TokenID)

		mockNext.On("Cancel", ctx, tokenID).Return(true, nil).Once()
		mockMetrics.On("RecordOperation", ctx, "scheduler", "cancel", "success").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "scheduler", "cancel",
			mock.AnythingOfType("time.Duration"), "success").Return().Once()

		cancelled, err := handle.Cancel(ctx)
		require.NoError(t, err)
		assert.True(t, cancelled)

		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("ScheduleRaw error", func(t *testing.T) {
		raw := usecase.RawSchedule{MessageType: "Clinic.ReminderDue"}
		expectedErr := errors.New("error")

		mockNext.On("ScheduleRaw", ctx, raw).Return(nil, expectedErr).Once()
		mockMetrics.On("RecordOperation", ctx, "scheduler", "schedule_raw", "error").Return().Once()
		mockMetrics.On("RecordDuration", ctx, "scheduler", "schedule_raw",
			mock.AnythingOfType("time.Duration"), "error").Return().Once()

		handle, err := uc.ScheduleRaw(ctx, raw)
		assert.Nil(t, handle)
		assert.Equal(t, expectedErr, err)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("DispatchOnce delegates", func(t *testing.T) {
		mockNext.On("DispatchOnce", ctx).Return(usecase.DispatchResult{Processed: 2, Dispatched: 2}, nil).Once()

		result, err := uc.DispatchOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Dispatched)
		mockNext.AssertExpectations(t)
	})
}
