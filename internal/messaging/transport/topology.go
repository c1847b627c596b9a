package transport

import (
	"strings"
	"sync"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
)

// Topology maps a message type to the address it is published on.
type Topology interface {
	PublishAddress(messageType string) (domain.Address, error)
}

// PrefixTopology publishes every type to prefix + type name unless an
// explicit route was added.
type PrefixTopology struct {
	prefix string
	mu     sync.RWMutex
	routes map[string]domain.Address
}

// NewPrefixTopology returns a PrefixTopology, e.g. "kafka://" or "mem://events.".
func NewPrefixTopology(prefix string) *PrefixTopology {
	return &PrefixTopology{prefix: prefix, routes: make(map[string]domain.Address)}
}

// Route publishes messageType on address.
func (t *PrefixTopology) Route(messageType string, address domain.Address) {
	t.mu.Lock()
	t.routes[messageType] = address
	t.mu.Unlock()
}

// PublishAddress implements Topology.
func (t *PrefixTopology) PublishAddress(messageType string) (domain.Address, error) {
	if messageType == "" {
		return domain.Address{}, domain.ErrEmptyMessageType
	}

	t.mu.RLock()
	addr, ok := t.routes[messageType]
	t.mu.RUnlock()
	if ok {
		return addr, nil
	}

	addr, err := domain.ParseAddress(t.prefix + topicName(messageType))
	if err != nil {
		return domain.Address{}, errors.Wrapf(err, "publish route for %s", messageType)
	}
	return addr, nil
}

// topicName keeps characters that are safe in both URL hosts and Kafka topic names.
func topicName(messageType string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, messageType)
}
