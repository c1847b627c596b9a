package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/relay/internal/database"
	messaging "github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/outbox/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func outboxRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "body", "headers", "source_address", "destination_address", "message_type",
		"content_type", "correlation_id", "enqueued_time", "sent_time",
	})
}

func TestPostgreSQLOutboxRepository_Add(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLOutboxRepository(db, "outbox_messages")

	destination := "kafka://billing"
	msg := &domain.OutboxMessage{
		ID:                 uuid.Must(uuid.NewV7()),
		Body:               []byte(`{"id":1}`),
		Headers:            messaging.Headers{"tenant": messaging.StringHeader("acme")},
		SourceAddress:      "orders-service",
		DestinationAddress: &destination,
		MessageType:        "Orders.OrderPlaced",
		ContentType:        messaging.ContentTypeJSON,
		EnqueuedTime:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
		WithArgs(
			msg.ID.String(), msg.Body, `{"tenant":{"t":"string","v":"acme"}}`, "orders-service",
			destination, "Orders.OrderPlaced", messaging.ContentTypeJSON, nil, msg.EnqueuedTime, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := database.NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		return repo.Add(ctx, msg)
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxRepository_AddRollsBackWithBusinessWrite(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLOutboxRepository(db, "outbox_messages")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := database.NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
		if err := repo.Add(ctx, &domain.OutboxMessage{ID: uuid.Must(uuid.NewV7())}); err != nil {
			return err
		}
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxRepository_GetPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLOutboxRepository(db, "outbox_messages")

	first := uuid.Must(uuid.NewV7())
	second := uuid.Must(uuid.NewV7())
	correlation := uuid.Must(uuid.NewV7())
	enqueued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM outbox_messages")).
		WithArgs(10).
		WillReturnRows(outboxRows().
			AddRow(first.String(), []byte(`{}`), []byte(`{}`), "orders", nil, "Orders.OrderPlaced",
				"application/json", nil, enqueued, nil).
			AddRow(second.String(), []byte(`{}`), []byte(`{"attempt":{"t":"int","v":2}}`), "orders",
				"kafka://billing", "Orders.OrderPlaced", "application/json", correlation.String(),
				enqueued.Add(time.Second), nil))

	messages, err := repo.GetPending(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first, messages[0].ID)
	assert.Nil(t, messages[0].DestinationAddress)
	assert.Nil(t, messages[0].CorrelationID)
	assert.True(t, messages[0].IsPending())
	assert.Equal(t, second, messages[1].ID)
	require.NotNil(t, messages[1].DestinationAddress)
	assert.Equal(t, "kafka://billing", *messages[1].DestinationAddress)
	require.NotNil(t, messages[1].CorrelationID)
	assert.Equal(t, correlation, *messages[1].CorrelationID)
	attempt, ok := messages[1].Headers["attempt"].AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(2), attempt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxRepository_GetPendingNonPositive(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLOutboxRepository(db, "outbox_messages")

	for _, maxCount := range []int{0, -1} {
		messages, err := repo.GetPending(context.Background(), maxCount)
		require.NoError(t, err)
		assert.Empty(t, messages)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLOutboxRepository_GetPendingQueryError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLOutboxRepository(db, "outbox_messages")
	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err := repo.GetPending(context.Background(), 5)

	assert.ErrorIs(t, err, assert.AnError)
}

func TestPostgreSQLOutboxRepository_MarkSent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostgreSQLOutboxRepository(db, "app.outbox")
	id := uuid.Must(uuid.NewV7())
	sentTime := time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE app.outbox SET sent_time = $1 WHERE id = $2 AND sent_time IS NULL")).
		WithArgs(sentTime, id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// a second call matches no pending row and is still not an error
	mock.ExpectExec(regexp.QuoteMeta("UPDATE app.outbox")).
		WithArgs(sentTime, id.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkSent(context.Background(), id, sentTime))
	require.NoError(t, repo.MarkSent(context.Background(), id, sentTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}
