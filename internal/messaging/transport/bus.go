package transport

import (
	"context"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
)

// Bus implements Sender and Publisher on top of a HostProvider.
type Bus struct {
	hosts    HostProvider
	topology Topology
}

// NewBus creates a Bus.
func NewBus(hosts HostProvider, topology Topology) *Bus {
	return &Bus{hosts: hosts, topology: topology}
}

// Send resolves the host for address and sends envelope through it.
func (b *Bus) Send(ctx context.Context, address domain.Address, envelope *domain.Envelope) error {
	host, err := b.hosts.ResolveHost(ctx, address)
	if err != nil {
		return errors.Wrapf(err, "resolve host for %s", address)
	}
	sender, err := host.SendTransport(ctx, address)
	if err != nil {
		return errors.Wrapf(err, "open transport for %s", address)
	}
	return sender.Send(ctx, envelope)
}

// Publish sends envelope to the topology route of its message type.
func (b *Bus) Publish(ctx context.Context, envelope *domain.Envelope) error {
	address, err := b.topology.PublishAddress(envelope.MessageType)
	if err != nil {
		return err
	}
	return b.Send(ctx, address, envelope)
}
