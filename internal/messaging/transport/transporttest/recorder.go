// Package transporttest provides an in-memory HostProvider that records
// every resolve and send, for use in tests.
package transporttest

import (
	"context"
	"sync"

	"github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/transport"
)

// Sent is one recorded delivery.
type Sent struct {
	Address  string
	Envelope domain.Envelope
}

// Recorder implements transport.HostProvider.
type Recorder struct {
	mu       sync.Mutex
	resolved []string
	sent     []Sent
	failures map[string]error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{failures: make(map[string]error)}
}

// FailSends makes every send to address return err. A nil err clears it.
func (r *Recorder) FailSends(address string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, address)
		return
	}
	r.failures[address] = err
}

// ResolveHost implements transport.HostProvider.
func (r *Recorder) ResolveHost(_ context.Context, address domain.Address) (transport.Host, error) {
	r.mu.Lock()
	r.resolved = append(r.resolved, address.String())
	r.mu.Unlock()
	return recorderHost{r: r}, nil
}

// Resolved returns every address passed to ResolveHost, in order.
func (r *Recorder) Resolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.resolved...)
}

// ResolvedCount returns how many times address was resolved.
func (r *Recorder) ResolvedCount(address string) int {
	n := 0
	for _, a := range r.Resolved() {
		if a == address {
			n++
		}
	}
	return n
}

// Sent returns every successful delivery, in order.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// SentTo returns the deliveries to address.
func (r *Recorder) SentTo(address string) []Sent {
	var out []Sent
	for _, s := range r.Sent() {
		if s.Address == address {
			out = append(out, s)
		}
	}
	return out
}

type recorderHost struct {
	r *Recorder
}

func (h recorderHost) SendTransport(_ context.Context, address domain.Address) (transport.SendTransport, error) {
	return recorderTransport{r: h.r, address: address.String()}, nil
}

type recorderTransport struct {
	r       *Recorder
	address string
}

func (t recorderTransport) Send(ctx context.Context, envelope *domain.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.r.mu.Lock()
	defer t.r.mu.Unlock()

	if err := t.r.failures[t.address]; err != nil {
		return err
	}
	copied := *envelope
	copied.Headers = envelope.Headers.Clone()
	t.r.sent = append(t.r.sent, Sent{Address: t.address, Envelope: copied})
	return nil
}
