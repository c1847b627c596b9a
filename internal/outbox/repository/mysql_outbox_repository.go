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

// MySQLOutboxRepository handles outbox message persistence for MySQL.
type MySQLOutboxRepository struct {
	db          *sql.DB
	insertQuery string
	pendingSQL  string
	markSentSQL string
}

// NewMySQLOutboxRepository creates a repository over table. The name must
// have been validated with database.TableNames.Validate.
func NewMySQLOutboxRepository(db *sql.DB, table string) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{
		db: db,
		insertQuery: fmt.Sprintf(`INSERT INTO %s (%s)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table, outboxColumns),
		pendingSQL: fmt.Sprintf(`SELECT %s FROM %s
			WHERE sent_time IS NULL
			ORDER BY enqueued_time ASC, id ASC
			LIMIT ?`, outboxColumns, table),
		markSentSQL: fmt.Sprintf(`UPDATE %s SET sent_time = ? WHERE id = ? AND sent_time IS NULL`, table),
	}
}

// Add inserts msg using the transaction carried by ctx, if any.
func (r *MySQLOutboxRepository) Add(ctx context.Context, msg *domain.OutboxMessage) error {
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
func (r *MySQLOutboxRepository) GetPending(ctx context.Context, maxCount int) ([]*domain.OutboxMessage, error) {
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
func (r *MySQLOutboxRepository) MarkSent(ctx context.Context, id uuid.UUID, sentTime time.Time) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.markSentSQL, sentTime.UTC(), id)
	return err
}
