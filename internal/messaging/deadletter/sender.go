// Package deadletter quarantines messages that can never be delivered.
package deadletter

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/transport"
)

// Letter describes a rejected message and why it was rejected.
type Letter struct {
	Reason      string
	Description string
	// BackReferenceHeader and BackReference identify the source row,
	// e.g. HeaderDeadLetterOriginalMessageID and the outbox id.
	BackReferenceHeader string
	BackReference       string

	MessageType   string
	ContentType   string
	Body          []byte
	Headers       domain.Headers
	CorrelationID *uuid.UUID
}

// Outcome reports what happened to a letter.
type Outcome int

const (
	// Delivered means the letter reached the dead-letter address.
	Delivered Outcome = iota
	// Dropped means no dead-letter address is configured and the letter was discarded.
	Dropped
)

// Sender delivers letters to an optional dead-letter address.
type Sender struct {
	hosts   transport.HostProvider
	address domain.Address
	clock   clock.Clock
	logger  *slog.Logger
}

// NewSender creates a Sender. A zero address disables delivery and letters are dropped.
func NewSender(hosts transport.HostProvider, address domain.Address, clk clock.Clock, logger *slog.Logger) *Sender {
	if clk == nil {
		clk = clock.System{}
	}
	return &Sender{hosts: hosts, address: address, clock: clk, logger: logger}
}

// Configured reports whether a dead-letter address is set.
func (s *Sender) Configured() bool {
	return !s.address.IsZero()
}

// Address returns the dead-letter address, zero when none is configured.
func (s *Sender) Address() domain.Address {
	return s.address
}

// Send wraps letter in a new envelope and sends it to the dead-letter address.
// An error means the letter was not delivered and the source row must stay pending.
func (s *Sender) Send(ctx context.Context, letter Letter) (Outcome, error) {
	if !s.Configured() {
		if s.logger != nil {
			s.logger.Warn("dropping undeliverable message, no dead-letter address configured",
				slog.String("reason", letter.Reason),
				slog.String("description", letter.Description),
				slog.String("message_type", letter.MessageType),
				slog.String(letter.BackReferenceHeader, letter.BackReference),
			)
		}
		return Dropped, nil
	}

	envelope := s.Envelope(letter)

	host, err := s.hosts.ResolveHost(ctx, s.address)
	if err != nil {
		return Delivered, errors.Wrapf(err, "resolve dead-letter host %s", s.address)
	}
	sender, err := host.SendTransport(ctx, s.address)
	if err != nil {
		return Delivered, errors.Wrapf(err, "open dead-letter transport %s", s.address)
	}
	if err := sender.Send(ctx, envelope); err != nil {
		return Delivered, errors.Wrapf(err, "send to dead-letter address %s", s.address)
	}

	if s.logger != nil {
		s.logger.Warn("message dead-lettered",
			slog.String("reason", letter.Reason),
			slog.String("description", letter.Description),
			slog.String("message_type", letter.MessageType),
			slog.String("address", s.address.String()),
			slog.String(letter.BackReferenceHeader, letter.BackReference),
		)
	}
	return Delivered, nil
}

// Envelope builds the dead-letter envelope for letter: the original body and
// headers plus the dead-letter headers, under a new message id.
func (s *Sender) Envelope(letter Letter) *domain.Envelope {
	now := s.clock.Now().UTC()

	headers := letter.Headers.Clone()
	headers[domain.HeaderDeadLetterReason] = domain.StringHeader(letter.Reason)
	headers[domain.HeaderDeadLetterDescription] = domain.StringHeader(letter.Description)
	headers[domain.HeaderDeadLetterTime] = domain.TimeHeader(now)
	if letter.BackReferenceHeader != "" {
		headers[letter.BackReferenceHeader] = domain.StringHeader(letter.BackReference)
	}

	return &domain.Envelope{
		MessageID:     domain.NewID(),
		CorrelationID: letter.CorrelationID,
		MessageType:   letter.MessageType,
		ContentType:   letter.ContentType,
		Body:          letter.Body,
		Headers:       headers,
		SentTime:      now,
	}
}
