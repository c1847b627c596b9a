// Package domain defines the scheduled message entity and its errors.
package domain

import (
	"github.com/allisson/relay/internal/errors"
)

// Scheduler errors.
var (
	// ErrScheduledTimeNotInFuture indicates a schedule time at or before now.
	ErrScheduledTimeNotInFuture = errors.Wrap(errors.ErrInvalidInput, "scheduled time must be in the future")

	// ErrNonPositiveDelay indicates a zero or negative schedule delay.
	ErrNonPositiveDelay = errors.Wrap(errors.ErrInvalidInput, "delay must be positive")
)
