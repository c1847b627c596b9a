// Package pubsub serves transport addresses through Go CDK pubsub topics. The
// address string is used as the topic URL, so any driver registered with the
// default URL mux works; "mem://" is always available.
package pubsub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cdkpubsub "gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/transport"
)

// MemScheme is the in-process mempubsub scheme registered by this package.
const MemScheme = "mem"

// Metadata keys carrying envelope fields next to the headers.
const (
	MetadataMessageID     = "MessageId"
	MetadataMessageType   = "MessageType"
	MetadataContentType   = "ContentType"
	MetadataCorrelationID = "CorrelationId"
	MetadataSentTime      = "SentTime"
)

// TopicOpener opens the topic behind a URL.
type TopicOpener func(ctx context.Context, url string) (*cdkpubsub.Topic, error)

// Host implements transport.Host and transport.HostProvider. Topics are
// opened on first use and kept until Shutdown.
type Host struct {
	open   TopicOpener
	logger *slog.Logger
	mu     sync.Mutex
	topics map[string]*cdkpubsub.Topic
}

// NewHost creates a Host that opens topics with cdkpubsub.OpenTopic.
func NewHost(logger *slog.Logger) *Host {
	return NewHostWithOpener(cdkpubsub.OpenTopic, logger)
}

// NewHostWithOpener creates a Host with a custom opener.
func NewHostWithOpener(open TopicOpener, logger *slog.Logger) *Host {
	return &Host{open: open, logger: logger, topics: make(map[string]*cdkpubsub.Topic)}
}

// ResolveHost implements transport.HostProvider.
func (h *Host) ResolveHost(_ context.Context, _ domain.Address) (transport.Host, error) {
	return h, nil
}

// SendTransport implements transport.Host.
func (h *Host) SendTransport(ctx context.Context, address domain.Address) (transport.SendTransport, error) {
	topic, err := h.topic(ctx, address.String())
	if err != nil {
		return nil, err
	}
	return &topicTransport{topic: topic}, nil
}

func (h *Host) topic(ctx context.Context, url string) (*cdkpubsub.Topic, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if topic, ok := h.topics[url]; ok {
		return topic, nil
	}

	topic, err := h.open(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnavailable, "open topic %s: %v", url, err)
	}
	h.topics[url] = topic

	if h.logger != nil {
		h.logger.Debug("opened pubsub topic", slog.String("url", url))
	}
	return topic, nil
}

// Shutdown flushes and closes every open topic.
func (h *Host) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for url, topic := range h.topics {
		if err := topic.Shutdown(ctx); err != nil {
			errs = append(errs, errors.Wrapf(err, "shutdown topic %s", url))
		}
		delete(h.topics, url)
	}
	return errors.Join(errs...)
}

type topicTransport struct {
	topic *cdkpubsub.Topic
}

func (t *topicTransport) Send(ctx context.Context, envelope *domain.Envelope) error {
	return t.topic.Send(ctx, &cdkpubsub.Message{
		Body:     envelope.Body,
		Metadata: Metadata(envelope),
	})
}

// Metadata flattens an envelope's headers and fields into string metadata.
func Metadata(envelope *domain.Envelope) map[string]string {
	md := make(map[string]string, len(envelope.Headers)+5)
	for k, v := range envelope.Headers {
		md[k] = v.String()
	}
	md[MetadataMessageID] = envelope.MessageID.String()
	md[MetadataMessageType] = envelope.MessageType
	md[MetadataContentType] = envelope.ContentType
	md[MetadataSentTime] = envelope.SentTime.UTC().Format(time.RFC3339Nano)
	if envelope.CorrelationID != nil {
		md[MetadataCorrelationID] = envelope.CorrelationID.String()
	}
	return md
}
