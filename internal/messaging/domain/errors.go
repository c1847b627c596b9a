// Package domain defines the message model shared by the outbox, inbox,
// scheduler and saga modules: identifiers, typed headers, transport
// addresses, envelopes and the dead-letter wire contract.
package domain

import (
	"github.com/allisson/relay/internal/errors"
)

// Messaging errors.
var (
	// ErrInvalidAddress indicates a transport address could not be parsed.
	ErrInvalidAddress = errors.Wrap(errors.ErrInvalidInput, "invalid address")

	// ErrInvalidHeader indicates a header value could not be decoded.
	ErrInvalidHeader = errors.Wrap(errors.ErrInvalidInput, "invalid header")

	// ErrUnknownMessageType indicates a message type name has no registration.
	ErrUnknownMessageType = errors.Wrap(errors.ErrNotFound, "unknown message type")

	// ErrEmptyMessageType indicates a message was stored without a type name.
	ErrEmptyMessageType = errors.Wrap(errors.ErrInvalidInput, "message type is empty")
)
