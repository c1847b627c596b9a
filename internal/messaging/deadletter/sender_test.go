package deadletter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/transport/transporttest"
)

func sampleLetter() Letter {
	return Letter{
		Reason:              domain.ReasonUnresolvableMessageType,
		Description:         "unknown message type \"Gone.Type\"",
		BackReferenceHeader: domain.HeaderDeadLetterOriginalMessageID,
		BackReference:       "0190f1c2-0000-7000-8000-000000000001",
		MessageType:         "Gone.Type",
		ContentType:         domain.ContentTypeJSON,
		Body:                []byte(`{"a":1}`),
		Headers:             domain.Headers{"tenant": domain.StringHeader("acme")},
	}
}

func TestSender_Send(t *testing.T) {
	recorder := transporttest.NewRecorder()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	dlq := domain.MustParseAddress("mem://dead-letters")
	sender := NewSender(recorder, dlq, clock.NewManual(now), nil)

	outcome, err := sender.Send(context.Background(), sampleLetter())
	require.NoError(t, err)
	assert.Equal(t, Delivered, outcome)
	assert.True(t, sender.Configured())

	sent := recorder.SentTo("mem://dead-letters")
	require.Len(t, sent, 1)
	env := sent[0].Envelope
	assert.Equal(t, []byte(`{"a":1}`), env.Body)
	assert.Equal(t, "Gone.Type", env.MessageType)

	headers := env.Headers
	assert.Equal(t, "UnresolvableMessageType", headers[domain.HeaderDeadLetterReason].String())
	assert.Equal(t, "unknown message type \"Gone.Type\"", headers[domain.HeaderDeadLetterDescription].String())
	assert.Equal(t, "2024-06-01T10:00:00Z", headers[domain.HeaderDeadLetterTime].String())
	assert.Equal(t, "0190f1c2-0000-7000-8000-000000000001", headers[domain.HeaderDeadLetterOriginalMessageID].String())
	assert.Equal(t, "acme", headers["tenant"].String())
	assert.Equal(t, 1, recorder.ResolvedCount("mem://dead-letters"))
}

func TestSender_DoesNotMutateOriginalHeaders(t *testing.T) {
	letter := sampleLetter()
	sender := NewSender(transporttest.NewRecorder(), domain.MustParseAddress("mem://dlq"), nil, nil)

	_, err := sender.Send(context.Background(), letter)
	require.NoError(t, err)

	assert.Len(t, letter.Headers, 1)
}

func TestSender_DropsWithoutAddress(t *testing.T) {
	recorder := transporttest.NewRecorder()
	sender := NewSender(recorder, domain.Address{}, nil, nil)

	outcome, err := sender.Send(context.Background(), sampleLetter())

	require.NoError(t, err)
	assert.Equal(t, Dropped, outcome)
	assert.False(t, sender.Configured())
	assert.Empty(t, recorder.Resolved())
}

func TestSender_SendFailure(t *testing.T) {
	recorder := transporttest.NewRecorder()
	recorder.FailSends("mem://dlq", errors.New("topic closed"))
	sender := NewSender(recorder, domain.MustParseAddress("mem://dlq"), nil, nil)

	_, err := sender.Send(context.Background(), sampleLetter())

	assert.ErrorContains(t, err, "topic closed")
}
