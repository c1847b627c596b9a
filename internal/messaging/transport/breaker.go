package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
)

// BreakerConfig configures the per-address circuit breakers.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// BreakerHostProvider wraps every send transport of an inner provider in a
// circuit breaker keyed by address. While a breaker is open sends fail fast
// with errors.ErrUnavailable and rows stay pending.
type BreakerHostProvider struct {
	inner    HostProvider
	config   BreakerConfig
	logger   *slog.Logger
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewBreakerHostProvider creates a BreakerHostProvider.
func NewBreakerHostProvider(inner HostProvider, config BreakerConfig, logger *slog.Logger) *BreakerHostProvider {
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = 5
	}
	if config.HalfOpenRequests == 0 {
		config.HalfOpenRequests = 1
	}
	return &BreakerHostProvider{
		inner:    inner,
		config:   config,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// ResolveHost implements HostProvider.
func (p *BreakerHostProvider) ResolveHost(ctx context.Context, address domain.Address) (Host, error) {
	host, err := p.inner.ResolveHost(ctx, address)
	if err != nil {
		return nil, err
	}
	return &breakerHost{inner: host, provider: p}, nil
}

// State returns the breaker state for address, or closed when none exists yet.
func (p *BreakerHostProvider) State(address domain.Address) gobreaker.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.breakers[address.String()]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

func (p *BreakerHostProvider) breaker(address domain.Address) *gobreaker.CircuitBreaker {
	key := address.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	if cb, ok := p.breakers[key]; ok {
		return cb
	}

	threshold := p.config.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: p.config.HalfOpenRequests,
		Timeout:     p.config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if p.logger != nil {
				p.logger.Warn("transport circuit breaker state changed",
					slog.String("address", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			}
		},
	})
	p.breakers[key] = cb
	return cb
}

type breakerHost struct {
	inner    Host
	provider *BreakerHostProvider
}

func (h *breakerHost) SendTransport(ctx context.Context, address domain.Address) (SendTransport, error) {
	sender, err := h.inner.SendTransport(ctx, address)
	if err != nil {
		return nil, err
	}
	return &breakerTransport{inner: sender, cb: h.provider.breaker(address)}, nil
}

type breakerTransport struct {
	inner SendTransport
	cb    *gobreaker.CircuitBreaker
}

func (t *breakerTransport) Send(ctx context.Context, envelope *domain.Envelope) error {
	_, err := t.cb.Execute(func() (any, error) {
		return nil, t.inner.Send(ctx, envelope)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(errors.ErrUnavailable, "%s: %v", t.cb.Name(), err)
	}
	return err
}
