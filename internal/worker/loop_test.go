package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	loop := New(Config{Name: "test", Interval: 5 * time.Millisecond}, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestLoop_StartStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	loop := New(Config{Name: "test", Interval: time.Millisecond}, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}, nil)

	require.NoError(t, loop.Start(context.Background()))
	assert.True(t, loop.Running())
	assert.ErrorIs(t, loop.Start(context.Background()), ErrAlreadyRunning)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("loop did not run")
	}

	require.NoError(t, loop.Stop(context.Background()))
	assert.False(t, loop.Running())
	assert.NoError(t, loop.Stop(context.Background()))
}

func TestLoop_InFlightIterationCompletes(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	var sawCancel atomic.Bool

	loop := New(Config{Name: "test", Interval: time.Hour}, func(ctx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		sawCancel.Store(ctx.Err() != nil)
		finished.Store(true)
		return nil
	}, nil)

	require.NoError(t, loop.Start(context.Background()))
	<-started
	require.NoError(t, loop.Stop(context.Background()))

	assert.True(t, finished.Load())
	assert.False(t, sawCancel.Load())
}

func TestLoop_StopTimeout(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	loop := New(Config{Name: "slow", Interval: time.Hour}, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, nil)

	require.NoError(t, loop.Start(context.Background()))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := loop.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	time.Sleep(10 * time.Millisecond)
}

func TestLoop_BacksOffAfterFailure(t *testing.T) {
	var calls atomic.Int32
	loop := New(Config{
		Name:       "failing",
		Interval:   time.Millisecond,
		RetryDelay: 200 * time.Millisecond,
	}, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("database unreachable")
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	require.NoError(t, loop.Run(ctx))

	assert.Equal(t, int32(1), calls.Load())
}

func TestNew_Defaults(t *testing.T) {
	loop := New(Config{}, func(context.Context) error { return nil }, nil)

	assert.Equal(t, time.Second, loop.config.Interval)
	assert.Equal(t, time.Second, loop.config.RetryDelay)
	assert.Equal(t, 10*time.Second, loop.config.MaxRetryDelay)
}
