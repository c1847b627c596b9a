// Package repository provides data persistence implementations for scheduled messages.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/database"
	"github.com/allisson/relay/internal/scheduler/domain"
)

const scheduledColumns = `token_id, message_type, body, headers, content_type, scheduled_time, dispatched_time`

// PostgreSQLScheduledMessageRepository handles scheduled message persistence for PostgreSQL.
type PostgreSQLScheduledMessageRepository struct {
	db                *sql.DB
	insertQuery       string
	dueQuery          string
	markDispatchedSQL string
	cancelSQL         string
}

// NewPostgreSQLScheduledMessageRepository creates a repository over table.
func NewPostgreSQLScheduledMessageRepository(db *sql.DB, table string) *PostgreSQLScheduledMessageRepository {
	return &PostgreSQLScheduledMessageRepository{
		db: db,
		insertQuery: fmt.Sprintf(`INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`, table, scheduledColumns),
		dueQuery: fmt.Sprintf(`SELECT %s FROM %s
			WHERE dispatched_time IS NULL AND scheduled_time <= $1
			ORDER BY scheduled_time ASC, token_id ASC
			LIMIT $2`, scheduledColumns, table),
		markDispatchedSQL: fmt.Sprintf(
			`UPDATE %s SET dispatched_time = $1 WHERE token_id = $2 AND dispatched_time IS NULL`, table),
		cancelSQL: fmt.Sprintf(`DELETE FROM %s WHERE token_id = $1 AND dispatched_time IS NULL`, table),
	}
}

// Add inserts msg using the transaction carried by ctx, if any.
func (r *PostgreSQLScheduledMessageRepository) Add(ctx context.Context, msg *domain.ScheduledMessage) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.insertQuery,
		msg.TokenID,
		msg.MessageType,
		msg.Body,
		msg.Headers,
		msg.ContentType,
		msg.ScheduledTime.UTC(),
		msg.DispatchedTime,
	)
	return err
}

// GetDue returns up to maxCount pending messages scheduled at or before now, oldest first.
func (r *PostgreSQLScheduledMessageRepository) GetDue(
	ctx context.Context,
	now time.Time,
	maxCount int,
) ([]*domain.ScheduledMessage, error) {
	if maxCount <= 0 {
		return []*domain.ScheduledMessage{}, nil
	}

	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, r.dueQuery, now.UTC(), maxCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanScheduledMessages(rows)
}

// MarkDispatched sets dispatched_time on a pending message. Missing or
// already dispatched rows are left untouched.
func (r *PostgreSQLScheduledMessageRepository) MarkDispatched(
	ctx context.Context,
	tokenID uuid.UUID,
	dispatchedTime time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.markDispatchedSQL, dispatchedTime.UTC(), tokenID)
	return err
}

// Cancel deletes a pending message and reports whether one was deleted.
func (r *PostgreSQLScheduledMessageRepository) Cancel(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, r.cancelSQL, tokenID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func scanScheduledMessages(rows *sql.Rows) ([]*domain.ScheduledMessage, error) {
	messages := make([]*domain.ScheduledMessage, 0)
	for rows.Next() {
		var msg domain.ScheduledMessage

		err := rows.Scan(
			&msg.TokenID,
			&msg.MessageType,
			&msg.Body,
			&msg.Headers,
			&msg.ContentType,
			&msg.ScheduledTime,
			&msg.DispatchedTime,
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
