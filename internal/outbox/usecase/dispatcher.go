package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/deadletter"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/registry"
	"github.com/allisson/relay/internal/metrics"
	"github.com/allisson/relay/internal/outbox/domain"
	"github.com/allisson/relay/internal/worker"
)

// Config holds dispatcher configuration.
type Config struct {
	BatchSize                 int
	PollInterval              time.Duration
	RetryDelay                time.Duration
	MaxConcurrentDestinations int
}

// DispatchResult counts what happened to the messages of one cycle.
type DispatchResult struct {
	Processed    int
	Sent         int
	Failed       int
	DeadLettered int
	Dropped      int
	// StateUpdateFailed counts messages that were delivered but could not be
	// marked sent. They are delivered again on a later cycle.
	StateUpdateFailed int
}

type outcome string

const (
	outcomeSent              outcome = "sent"
	outcomeFailed            outcome = "failed"
	outcomeDeadLettered      outcome = "dead_lettered"
	outcomeDropped           outcome = "dropped"
	outcomeStateUpdateFailed outcome = "state_update_failed"
)

func (r *DispatchResult) add(o outcome) {
	r.Processed++
	switch o {
	case outcomeSent:
		r.Sent++
	case outcomeFailed:
		r.Failed++
	case outcomeDeadLettered:
		r.DeadLettered++
	case outcomeDropped:
		r.Dropped++
	case outcomeStateUpdateFailed:
		r.StateUpdateFailed++
	}
}

// Dispatcher relays pending outbox messages to the transport.
type Dispatcher struct {
	config      Config
	repo        OutboxRepository
	types       *registry.Registry
	bus         Bus
	deadLetters *deadletter.Sender
	clock       clock.Clock
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
	loop        *worker.Loop
}

// NewDispatcher creates a Dispatcher. It does not poll until Start or Run is called.
func NewDispatcher(
	config Config,
	repo OutboxRepository,
	types *registry.Registry,
	bus Bus,
	deadLetters *deadletter.Sender,
	clk clock.Clock,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Dispatcher {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.MaxConcurrentDestinations <= 0 {
		config.MaxConcurrentDestinations = 1
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

	d := &Dispatcher{
		config:      config,
		repo:        repo,
		types:       types,
		bus:         bus,
		deadLetters: deadLetters,
		clock:       clk,
		metrics:     businessMetrics,
		logger:      logger,
	}
	d.loop = worker.New(worker.Config{
		Name:       "outbox-dispatcher",
		Interval:   config.PollInterval,
		RetryDelay: config.RetryDelay,
	}, d.poll, logger)
	return d
}

// Start runs the dispatch loop in the background.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.warnIfNoDeadLetter(ctx)
	return d.loop.Start(ctx)
}

// Stop stops the dispatch loop, letting an in-flight cycle finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	return d.loop.Stop(ctx)
}

// Run runs the dispatch loop until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.warnIfNoDeadLetter(ctx)
	return d.loop.Run(ctx)
}

func (d *Dispatcher) poll(ctx context.Context) error {
	_, err := d.DispatchOnce(ctx)
	return err
}

func (d *Dispatcher) warnIfNoDeadLetter(ctx context.Context) {
	if !d.deadLetters.Configured() {
		d.logger.WarnContext(ctx,
			"no outbox dead-letter address configured, undeliverable messages will be dropped")
	}
}

// DispatchOnce reads one batch of pending messages and delivers it. Messages
// are grouped by route; groups run concurrently up to MaxConcurrentDestinations
// and each group is sent sequentially, oldest first. Per-message failures are
// counted in the result. An error is returned only when the batch could not be read.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (DispatchResult, error) {
	start := time.Now()

	messages, err := d.repo.GetPending(ctx, d.config.BatchSize)
	if err != nil {
		d.metrics.RecordDuration(ctx, metrics.DomainOutbox, "dispatch_cycle", time.Since(start), "error")
		return DispatchResult{}, errors.Wrap(err, "get pending outbox messages")
	}
	d.metrics.RecordBatchSize(ctx, metrics.DomainOutbox, len(messages))

	var (
		mu     sync.Mutex
		result DispatchResult
	)

	groups := lo.GroupBy(messages, routeKey)
	routes := lo.Uniq(lo.Map(messages, func(msg *domain.OutboxMessage, _ int) string {
		return routeKey(msg)
	}))

	g := new(errgroup.Group)
	g.SetLimit(d.config.MaxConcurrentDestinations)
	for _, route := range routes {
		batch := groups[route]
		g.Go(func() error {
			for _, msg := range batch {
				o := d.dispatch(ctx, msg)
				d.metrics.RecordOperation(ctx, metrics.DomainOutbox, "dispatch", string(o))

				mu.Lock()
				result.add(o)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	d.metrics.RecordDuration(ctx, metrics.DomainOutbox, "dispatch_cycle", time.Since(start), "success")
	if result.Processed > 0 {
		d.logger.DebugContext(ctx, "outbox dispatch cycle finished",
			slog.Int("processed", result.Processed),
			slog.Int("sent", result.Sent),
			slog.Int("failed", result.Failed),
			slog.Int("dead_lettered", result.DeadLettered),
			slog.Int("dropped", result.Dropped),
		)
	}
	return result, nil
}

func routeKey(msg *domain.OutboxMessage) string {
	if msg.IsPublish() {
		return "publish:" + msg.MessageType
	}
	return *msg.DestinationAddress
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *domain.OutboxMessage) outcome {
	if _, err := d.types.Resolve(msg.MessageType); err != nil {
		return d.deadLetter(ctx, msg, messaging.ReasonUnresolvableMessageType,
			fmt.Sprintf("message type %q could not be resolved", msg.MessageType))
	}

	var destination messaging.Address
	if !msg.IsPublish() {
		address, err := messaging.ParseAddress(*msg.DestinationAddress)
		if err != nil {
			return d.deadLetter(ctx, msg, messaging.ReasonInvalidMessage, "invalid destination address")
		}
		destination = address
	}

	now := d.clock.Now().UTC()
	envelope := msg.Envelope(now)

	var err error
	if msg.IsPublish() {
		err = d.bus.Publish(ctx, envelope)
	} else {
		err = d.bus.Send(ctx, destination, envelope)
	}
	if err != nil {
		d.logger.WarnContext(ctx, "outbox message delivery failed, will retry",
			slog.String("message_id", msg.ID.String()),
			slog.String("message_type", msg.MessageType),
			slog.String("route", routeKey(msg)),
			slog.Any("error", err),
		)
		return outcomeFailed
	}

	return d.markSent(ctx, msg, now, outcomeSent)
}

func (d *Dispatcher) deadLetter(ctx context.Context, msg *domain.OutboxMessage, reason, description string) outcome {
	delivered, err := d.deadLetters.Send(ctx, deadletter.Letter{
		Reason:              reason,
		Description:         description,
		BackReferenceHeader: messaging.HeaderDeadLetterOriginalMessageID,
		BackReference:       msg.ID.String(),
		MessageType:         msg.MessageType,
		ContentType:         msg.ContentType,
		Body:                msg.Body,
		Headers:             msg.Headers,
		CorrelationID:       msg.CorrelationID,
	})
	if err != nil {
		d.logger.ErrorContext(ctx, "dead-letter send failed, outbox message left pending",
			slog.String("message_id", msg.ID.String()),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		return outcomeFailed
	}

	o := outcomeDeadLettered
	if delivered == deadletter.Dropped {
		o = outcomeDropped
	}
	return d.markSent(ctx, msg, d.clock.Now().UTC(), o)
}

func (d *Dispatcher) markSent(ctx context.Context, msg *domain.OutboxMessage, sentTime time.Time, o outcome) outcome {
	if err := d.repo.MarkSent(ctx, msg.ID, sentTime); err != nil {
		d.logger.ErrorContext(ctx, "failed to mark outbox message sent",
			slog.String("message_id", msg.ID.String()),
			slog.Any("error", err),
		)
		return outcomeStateUpdateFailed
	}
	return o
}
