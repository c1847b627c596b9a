// Package transport abstracts the broker. A HostProvider resolves an address
// to a Host, a Host hands out SendTransports, and the Bus combines them with a
// Topology to implement point-to-point sends and type-routed publishes.
package transport

import (
	"context"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
)

// ErrNoHost indicates no host is registered for an address scheme.
var ErrNoHost = errors.Wrap(errors.ErrNotFound, "no transport host for address")

// SendTransport delivers envelopes to one address.
type SendTransport interface {
	Send(ctx context.Context, envelope *domain.Envelope) error
}

// Host hands out send transports for the addresses it serves.
type Host interface {
	SendTransport(ctx context.Context, address domain.Address) (SendTransport, error)
}

// HostProvider resolves the host serving an address.
type HostProvider interface {
	ResolveHost(ctx context.Context, address domain.Address) (Host, error)
}

// Sender sends an envelope to an explicit address.
type Sender interface {
	Send(ctx context.Context, address domain.Address, envelope *domain.Envelope) error
}

// Publisher sends an envelope to the default route of its message type.
type Publisher interface {
	Publish(ctx context.Context, envelope *domain.Envelope) error
}
