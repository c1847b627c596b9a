package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/errors"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/registry"
	"github.com/allisson/relay/internal/messaging/serializer"
)

type orderPlaced struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
}

type unregistered struct{}

func newTypes(t *testing.T) *registry.Registry {
	t.Helper()
	types := registry.New()
	require.NoError(t, registry.Register[orderPlaced](types, "Orders.OrderPlaced"))
	return types
}

func TestWriter_Publish(t *testing.T) {
	repo := newMemoryRepository()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	writer := NewWriter(repo, newTypes(t), serializer.NewSet(serializer.NewJSON()), clock.NewManual(now), "orders")
	correlation := uuid.Must(uuid.NewV7())

	id, err := writer.Publish(context.Background(), orderPlaced{OrderID: "o-1", Total: 42},
		WithCorrelationID(correlation),
		WithHeaders(messaging.Headers{"tenant": messaging.StringHeader("acme")}),
	)

	require.NoError(t, err)
	msg := repo.get(id)
	assert.True(t, msg.IsPublish())
	assert.True(t, msg.IsPending())
	assert.Equal(t, "Orders.OrderPlaced", msg.MessageType)
	assert.Equal(t, messaging.ContentTypeJSON, msg.ContentType)
	assert.Equal(t, "orders", msg.SourceAddress)
	assert.Equal(t, now, msg.EnqueuedTime)
	require.NotNil(t, msg.CorrelationID)
	assert.Equal(t, correlation, *msg.CorrelationID)
	tenant, ok := msg.Headers.GetString("tenant")
	assert.True(t, ok)
	assert.Equal(t, "acme", tenant)

	var decoded orderPlaced
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, orderPlaced{OrderID: "o-1", Total: 42}, decoded)
}

func TestWriter_Send(t *testing.T) {
	repo := newMemoryRepository()
	writer := NewWriter(repo, newTypes(t), serializer.NewSet(serializer.NewJSON()), nil, "orders")

	id, err := writer.Send(context.Background(), messaging.MustParseAddress("kafka://billing"),
		&orderPlaced{OrderID: "o-2"}, WithSourceAddress("checkout"))

	require.NoError(t, err)
	msg := repo.get(id)
	require.NotNil(t, msg.DestinationAddress)
	assert.Equal(t, "kafka://billing", *msg.DestinationAddress)
	assert.Equal(t, "checkout", msg.SourceAddress)
}

func TestWriter_Errors(t *testing.T) {
	writer := NewWriter(newMemoryRepository(), newTypes(t), serializer.NewSet(serializer.NewJSON()), nil, "orders")
	ctx := context.Background()

	t.Run("zero destination", func(t *testing.T) {
		_, err := writer.Send(ctx, messaging.Address{}, orderPlaced{})
		assert.ErrorIs(t, err, messaging.ErrInvalidAddress)
	})

	t.Run("unregistered payload", func(t *testing.T) {
		_, err := writer.Publish(ctx, unregistered{})
		assert.ErrorIs(t, err, messaging.ErrUnknownMessageType)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		_, err := writer.Publish(ctx, orderPlaced{}, WithContentType("text/csv"))
		assert.ErrorIs(t, err, serializer.ErrUnsupportedContentType)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})
}
