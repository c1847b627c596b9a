// Package repository provides data persistence implementations for outbox messages.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/database"
	"github.com/allisson/relay/internal/outbox/domain"
)

const outboxColumns = `id, body, headers, source_address, destination_address, message_type,
	content_type, correlation_id, enqueued_time, sent_time`

// PostgreSQLOutboxRepository handles outbox message persistence for PostgreSQL.
type PostgreSQLOutboxRepository struct {
	db          *sql.DB
	insertQuery string
	pendingSQL  string
	markSentSQL string
}

// NewPostgreSQLOutboxRepository creates a repository over table. The name must
// have been validated with database.TableNames.Validate.
func NewPostgreSQLOutboxRepository(db *sql.DB, table string) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{
		db: db,
		insertQuery: fmt.Sprintf(`INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, table, outboxColumns),
		pendingSQL: fmt.Sprintf(`SELECT %s FROM %s
			WHERE sent_time IS NULL
			ORDER BY enqueued_time ASC, id ASC
			LIMIT $1`, outboxColumns, table),
		markSentSQL: fmt.Sprintf(`UPDATE %s SET sent_time = $1 WHERE id = $2 AND sent_time IS NULL`, table),
	}
}

// Add inserts msg using the transaction carried by ctx, if any.
func (r *PostgreSQLOutboxRepository) Add(ctx context.Context, msg *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.insertQuery,
		msg.ID,
		msg.Body,
		msg.Headers,
		msg.SourceAddress,
		msg.DestinationAddress,
		msg.MessageType,
		msg.ContentType,
		msg.CorrelationID,
		msg.EnqueuedTime.UTC(),
		msg.SentTime,
	)
	return err
}

// GetPending returns up to maxCount unsent messages, oldest first.
func (r *PostgreSQLOutboxRepository) GetPending(ctx context.Context, maxCount int) ([]*domain.OutboxMessage, error) {
	if maxCount <= 0 {
		return []*domain.OutboxMessage{}, nil
	}

	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, r.pendingSQL, maxCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanOutboxMessages(rows)
}

// MarkSent sets sent_time on a pending message. Missing or already sent rows are left untouched.
func (r *PostgreSQLOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID, sentTime time.Time) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.markSentSQL, sentTime.UTC(), id)
	return err
}

func scanOutboxMessages(rows *sql.Rows) ([]*domain.OutboxMessage, error) {
	messages := make([]*domain.OutboxMessage, 0)
	for rows.Next() {
		var msg domain.OutboxMessage

		err := rows.Scan(
			&msg.ID,
			&msg.Body,
			&msg.Headers,
			&msg.SourceAddress,
			&msg.DestinationAddress,
			&msg.MessageType,
			&msg.ContentType,
			&msg.CorrelationID,
			&msg.EnqueuedTime,
			&msg.SentTime,
		)
		if err != nil {
			return nil, err
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
