package transport

import (
	"context"
	"sync"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
)

// Router is a HostProvider that picks a host by address scheme.
type Router struct {
	mu    sync.RWMutex
	hosts map[string]Host
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{hosts: make(map[string]Host)}
}

// Handle serves addresses with the given scheme from host.
func (r *Router) Handle(scheme string, host Host) {
	r.mu.Lock()
	r.hosts[scheme] = host
	r.mu.Unlock()
}

// Schemes returns the schemes that have a host.
func (r *Router) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemes := make([]string, 0, len(r.hosts))
	for scheme := range r.hosts {
		schemes = append(schemes, scheme)
	}
	return schemes
}

// ResolveHost implements HostProvider.
func (r *Router) ResolveHost(_ context.Context, address domain.Address) (Host, error) {
	r.mu.RLock()
	host, ok := r.hosts[address.Scheme()]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrNoHost, "%s", address)
	}
	return host, nil
}
