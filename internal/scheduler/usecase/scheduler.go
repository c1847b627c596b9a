package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/deadletter"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/registry"
	"github.com/allisson/relay/internal/messaging/serializer"
	"github.com/allisson/relay/internal/metrics"
	"github.com/allisson/relay/internal/scheduler/domain"
	"github.com/allisson/relay/internal/worker"
)

// Config holds scheduler configuration.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	RetryDelay   time.Duration
}

// DispatchResult counts what happened to the messages of one cycle.
type DispatchResult struct {
	Processed         int
	Dispatched        int
	Failed            int
	DeadLettered      int
	Dropped           int
	StateUpdateFailed int
}

type scheduleOptions struct {
	headers     messaging.Headers
	contentType string
}

// Option customizes a scheduled message.
type Option func(*scheduleOptions)

// WithHeaders adds headers to the scheduled message.
func WithHeaders(headers messaging.Headers) Option {
	return func(o *scheduleOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithContentType selects a serializer other than the default one.
func WithContentType(contentType string) Option {
	return func(o *scheduleOptions) { o.contentType = contentType }
}

// Scheduler persists messages for later delivery and dispatches them when due.
type Scheduler struct {
	config      Config
	repo        ScheduledMessageRepository
	types       *registry.Registry
	serializers *serializer.Set
	bus         Bus
	deadLetters *deadletter.Sender
	clock       clock.Clock
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
	loop        *worker.Loop
}

// NewScheduler creates a Scheduler. It does not poll until Start or Run is called.
func NewScheduler(
	config Config,
	repo ScheduledMessageRepository,
	types *registry.Registry,
	serializers *serializer.Set,
	bus Bus,
	deadLetters *deadletter.Sender,
	clk clock.Clock,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Scheduler {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if clk == nil {
		clk = clock.System{}
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Scheduler{
		config:      config,
		repo:        repo,
		types:       types,
		serializers: serializers,
		bus:         bus,
		deadLetters: deadLetters,
		clock:       clk,
		metrics:     businessMetrics,
		logger:      logger,
	}
	s.loop = worker.New(worker.Config{
		Name:       "message-scheduler",
		Interval:   config.PollInterval,
		RetryDelay: config.RetryDelay,
	}, s.poll, logger)
	return s
}

// ScheduleSend schedules payload for delivery to destination at the given time.
func (s *Scheduler) ScheduleSend(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	at time.Time,
	opts ...Option,
) (*ScheduleHandle, error) {
	if destination.IsZero() {
		return nil, errors.Wrap(messaging.ErrInvalidAddress, "destination is required")
	}
	return s.schedule(ctx, destination, payload, at, s.clock.Now(), opts)
}

// ScheduleSendIn schedules payload for delivery to destination after delay.
func (s *Scheduler) ScheduleSendIn(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	delay time.Duration,
	opts ...Option,
) (*ScheduleHandle, error) {
	if delay <= 0 {
		return nil, domain.ErrNonPositiveDelay
	}
	if destination.IsZero() {
		return nil, errors.Wrap(messaging.ErrInvalidAddress, "destination is required")
	}
	now := s.clock.Now()
	return s.schedule(ctx, destination, payload, now.Add(delay), now, opts)
}

// SchedulePublish schedules payload for publication at the given time.
func (s *Scheduler) SchedulePublish(
	ctx context.Context,
	payload any,
	at time.Time,
	opts ...Option,
) (*ScheduleHandle, error) {
	return s.schedule(ctx, messaging.Address{}, payload, at, s.clock.Now(), opts)
}

// SchedulePublishIn schedules payload for publication after delay.
func (s *Scheduler) SchedulePublishIn(
	ctx context.Context,
	payload any,
	delay time.Duration,
	opts ...Option,
) (*ScheduleHandle, error) {
	if delay <= 0 {
		return nil, domain.ErrNonPositiveDelay
	}
	now := s.clock.Now()
	return s.schedule(ctx, messaging.Address{}, payload, now.Add(delay), now, opts)
}

func (s *Scheduler) schedule(
	ctx context.Context,
	destination messaging.Address,
	payload any,
	at, now time.Time,
	opts []Option,
) (*ScheduleHandle, error) {
	if err := validateTime(at, now); err != nil {
		return nil, err
	}

	o := scheduleOptions{headers: messaging.Headers{}}
	for _, opt := range opts {
		opt(&o)
	}

	messageType, err := s.types.NameOf(payload)
	if err != nil {
		return nil, err
	}

	ser := s.serializers.Default()
	if o.contentType != "" {
		if ser, err = s.serializers.Get(o.contentType); err != nil {
			return nil, err
		}
	}

	body, err := ser.Serialize(messageType, payload)
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, messageType, ser.ContentType(), body, o.headers, destination, at)
}

// ScheduleRaw schedules an already serialized body. The message type must be
// registered and the body must decode with the serializer for ContentType.
func (s *Scheduler) ScheduleRaw(ctx context.Context, raw RawSchedule) (*ScheduleHandle, error) {
	if err := validateTime(raw.ScheduledTime, s.clock.Now()); err != nil {
		return nil, err
	}
	if _, err := s.serializers.Decode(s.types, raw.MessageType, raw.ContentType, raw.Body); err != nil {
		return nil, err
	}

	contentType := raw.ContentType
	if contentType == "" {
		contentType = s.serializers.Default().ContentType()
	}
	return s.persist(ctx, raw.MessageType, contentType, raw.Body, raw.Headers, raw.Destination,
		raw.ScheduledTime)
}

func validateTime(at, now time.Time) error {
	if !at.After(now) {
		return errors.Wrapf(domain.ErrScheduledTimeNotInFuture, "%s", at.UTC().Format(time.RFC3339Nano))
	}
	return nil
}

func (s *Scheduler) persist(
	ctx context.Context,
	messageType, contentType string,
	body []byte,
	headers messaging.Headers,
	destination messaging.Address,
	at time.Time,
) (*ScheduleHandle, error) {
	// The destination header is owned by the scheduler. A caller supplied
	// value would turn a publish into a send.
	headers = headers.Without(messaging.HeaderScheduledDestination)
	if !destination.IsZero() {
		headers[messaging.HeaderScheduledDestination] = messaging.StringHeader(destination.String())
	}

	msg := &domain.ScheduledMessage{
		TokenID:       messaging.NewID(),
		MessageType:   messageType,
		Body:          body,
		Headers:       headers,
		ContentType:   contentType,
		ScheduledTime: at.UTC(),
	}
	if err := s.repo.Add(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "add scheduled message")
	}

	return &ScheduleHandle{TokenID: msg.TokenID, ScheduledTime: msg.ScheduledTime, canceller: s}, nil
}

// Cancel removes a pending scheduled message. Unknown or dispatched tokens are ignored.
func (s *Scheduler) Cancel(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	cancelled, err := s.repo.Cancel(ctx, tokenID)
	if err != nil {
		return false, errors.Wrap(err, "cancel scheduled message")
	}
	return cancelled, nil
}

// Start runs the dispatch loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.warnIfNoDeadLetter(ctx)
	return s.loop.Start(ctx)
}

// Stop stops the dispatch loop, letting an in-flight cycle finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.loop.Stop(ctx)
}

// Run runs the dispatch loop until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.warnIfNoDeadLetter(ctx)
	return s.loop.Run(ctx)
}

func (s *Scheduler) poll(ctx context.Context) error {
	_, err := s.DispatchOnce(ctx)
	return err
}

func (s *Scheduler) warnIfNoDeadLetter(ctx context.Context) {
	if !s.deadLetters.Configured() {
		s.logger.WarnContext(ctx,
			"no scheduler dead-letter address configured, invalid scheduled messages will be dropped")
	}
}
