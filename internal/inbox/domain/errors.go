package domain

import (
	"github.com/allisson/relay/internal/errors"
)

// ErrEmptyConsumerID indicates an inbox call without a consumer id.
var ErrEmptyConsumerID = errors.Wrap(errors.ErrInvalidInput, "consumer id is required")
