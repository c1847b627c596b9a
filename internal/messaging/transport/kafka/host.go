// Package kafka serves "kafka://<topic>" addresses with a segmentio/kafka-go writer.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/transport"
)

// Scheme is the address scheme served by this package.
const Scheme = "kafka"

// Kafka header keys carrying envelope fields next to the message headers.
const (
	HeaderMessageID     = "MessageId"
	HeaderMessageType   = "MessageType"
	HeaderContentType   = "ContentType"
	HeaderCorrelationID = "CorrelationId"
	HeaderSentTime      = "SentTime"
)

// MessageWriter is the subset of *kafka.Writer used by the host.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Host implements transport.Host and transport.HostProvider for Kafka.
type Host struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewHost creates a Host writing to brokers. The topic of every message is
// taken from its address.
func NewHost(brokers []string, logger *slog.Logger) *Host {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	if logger != nil {
		kafkaLogger := logger.With(slog.String("kafka_component", "writer"))
		writer.ErrorLogger = kafka.LoggerFunc(func(msg string, args ...any) {
			kafkaLogger.Error("kafka writer error", slog.String("detail", fmt.Sprintf(msg, args...)))
		})
		logger.Info("kafka transport initialized", slog.Any("brokers", brokers))
	}
	return NewHostWithWriter(writer, logger)
}

// NewHostWithWriter creates a Host around an existing writer.
func NewHostWithWriter(writer MessageWriter, logger *slog.Logger) *Host {
	return &Host{writer: writer, logger: logger}
}

// ResolveHost implements transport.HostProvider.
func (h *Host) ResolveHost(_ context.Context, _ domain.Address) (transport.Host, error) {
	return h, nil
}

// SendTransport implements transport.Host.
func (h *Host) SendTransport(_ context.Context, address domain.Address) (transport.SendTransport, error) {
	if address.Scheme() != Scheme {
		return nil, errors.Wrapf(transport.ErrNoHost, "kafka host cannot serve %s", address)
	}
	return &topicTransport{host: h, topic: address.Name()}, nil
}

// Close flushes pending writes and closes the writer.
func (h *Host) Close() error {
	if err := h.writer.Close(); err != nil {
		return errors.Wrap(err, "failed to close kafka writer")
	}
	return nil
}

type topicTransport struct {
	host  *Host
	topic string
}

func (t *topicTransport) Send(ctx context.Context, envelope *domain.Envelope) error {
	if err := t.host.writer.WriteMessages(ctx, Message(t.topic, envelope)); err != nil {
		return errors.Wrapf(err, "failed to produce message to topic %s", t.topic)
	}
	if t.host.logger != nil {
		t.host.logger.Debug("produced message",
			slog.String("topic", t.topic),
			slog.String("message_id", envelope.MessageID.String()),
		)
	}
	return nil
}

// Message converts an envelope into a Kafka message for topic. The key is
// the correlation id when present so related messages share a partition.
func Message(topic string, envelope *domain.Envelope) kafka.Message {
	key := envelope.MessageID.String()
	if envelope.CorrelationID != nil {
		key = envelope.CorrelationID.String()
	}

	headers := make([]kafka.Header, 0, len(envelope.Headers)+5)
	for k, v := range envelope.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v.String())})
	}
	headers = append(headers,
		kafka.Header{Key: HeaderMessageID, Value: []byte(envelope.MessageID.String())},
		kafka.Header{Key: HeaderMessageType, Value: []byte(envelope.MessageType)},
		kafka.Header{Key: HeaderContentType, Value: []byte(envelope.ContentType)},
		kafka.Header{Key: HeaderSentTime, Value: []byte(envelope.SentTime.UTC().Format(time.RFC3339Nano))},
	)
	if envelope.CorrelationID != nil {
		headers = append(headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(envelope.CorrelationID.String())})
	}

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   envelope.Body,
		Headers: headers,
		Time:    envelope.SentTime,
	}
}
