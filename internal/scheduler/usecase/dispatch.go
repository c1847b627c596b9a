package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/deadletter"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/metrics"
	"github.com/allisson/relay/internal/scheduler/domain"
)

// rejection is a permanent validation failure of a due message.
type rejection struct {
	description string
}

// DispatchOnce dispatches one batch of due messages. Messages that fail
// validation are dead-lettered and marked dispatched; transport failures
// leave the message pending. An error is returned only when the batch could not be read.
func (s *Scheduler) DispatchOnce(ctx context.Context) (DispatchResult, error) {
	start := time.Now()

	messages, err := s.repo.GetDue(ctx, s.clock.Now(), s.config.BatchSize)
	if err != nil {
		s.metrics.RecordDuration(ctx, metrics.DomainScheduler, "dispatch_cycle", time.Since(start), "error")
		return DispatchResult{}, errors.Wrap(err, "get due scheduled messages")
	}
	s.metrics.RecordBatchSize(ctx, metrics.DomainScheduler, len(messages))

	var result DispatchResult
	for _, msg := range messages {
		status := s.dispatch(ctx, msg, &result)
		s.metrics.RecordOperation(ctx, metrics.DomainScheduler, "dispatch", status)
	}

	s.metrics.RecordDuration(ctx, metrics.DomainScheduler, "dispatch_cycle", time.Since(start), "success")
	if result.Processed > 0 {
		s.logger.DebugContext(ctx, "scheduler dispatch cycle finished",
			slog.Int("processed", result.Processed),
			slog.Int("dispatched", result.Dispatched),
			slog.Int("failed", result.Failed),
			slog.Int("dead_lettered", result.DeadLettered),
			slog.Int("dropped", result.Dropped),
		)
	}
	return result, nil
}

func (s *Scheduler) dispatch(ctx context.Context, msg *domain.ScheduledMessage, result *DispatchResult) string {
	result.Processed++

	destination, rejected := s.validate(msg)
	if rejected != nil {
		return s.deadLetter(ctx, msg, rejected.description, result)
	}

	now := s.clock.Now().UTC()
	envelope := &messaging.Envelope{
		MessageID:   msg.TokenID,
		MessageType: msg.MessageType,
		ContentType: msg.ContentType,
		Body:        msg.Body,
		Headers:     msg.ForwardHeaders(),
		SentTime:    now,
	}

	var err error
	if destination.IsZero() {
		err = s.bus.Publish(ctx, envelope)
	} else {
		err = s.bus.Send(ctx, destination, envelope)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "scheduled message delivery failed, will retry",
			slog.String("token_id", msg.TokenID.String()),
			slog.String("message_type", msg.MessageType),
			slog.Any("error", err),
		)
		result.Failed++
		return "failed"
	}

	if !s.markDispatched(ctx, msg, now, result) {
		return "state_update_failed"
	}
	result.Dispatched++
	return "dispatched"
}

// validate checks msg in order and stops at the first failure.
func (s *Scheduler) validate(msg *domain.ScheduledMessage) (messaging.Address, *rejection) {
	if msg.MessageType == "" {
		return messaging.Address{}, &rejection{description: "message type is empty"}
	}
	if !s.types.Has(msg.MessageType) {
		return messaging.Address{}, &rejection{description: "type could not be resolved"}
	}
	if _, err := s.serializers.Decode(s.types, msg.MessageType, msg.ContentType, msg.Body); err != nil {
		return messaging.Address{}, &rejection{description: "deserialization failed: " + err.Error()}
	}
	if !msg.HasDestination() {
		return messaging.Address{}, nil
	}
	destination, err := msg.Destination()
	if err != nil {
		return messaging.Address{}, &rejection{description: "invalid destination address"}
	}
	return destination, nil
}

func (s *Scheduler) deadLetter(
	ctx context.Context,
	msg *domain.ScheduledMessage,
	description string,
	result *DispatchResult,
) string {
	delivered, err := s.deadLetters.Send(ctx, deadletter.Letter{
		Reason:              messaging.ReasonInvalidMessage,
		Description:         description,
		BackReferenceHeader: messaging.HeaderDeadLetterScheduledTokenID,
		BackReference:       msg.TokenID.String(),
		MessageType:         msg.MessageType,
		ContentType:         msg.ContentType,
		Body:                msg.Body,
		Headers:             msg.Headers,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "dead-letter send failed, scheduled message left pending",
			slog.String("token_id", msg.TokenID.String()),
			slog.Any("error", err),
		)
		result.Failed++
		return "failed"
	}

	if !s.markDispatched(ctx, msg, s.clock.Now().UTC(), result) {
		return "state_update_failed"
	}
	if delivered == deadletter.Dropped {
		result.Dropped++
		return "dropped"
	}
	result.DeadLettered++
	return "dead_lettered"
}

func (s *Scheduler) markDispatched(
	ctx context.Context,
	msg *domain.ScheduledMessage,
	dispatchedTime time.Time,
	result *DispatchResult,
) bool {
	if err := s.repo.MarkDispatched(ctx, msg.TokenID, dispatchedTime); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark scheduled message dispatched",
			slog.String("token_id", msg.TokenID.String()),
			slog.Any("error", err),
		)
		result.StateUpdateFailed++
		return false
	}
	return true
}
