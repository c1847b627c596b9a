// Package repository provides data persistence implementations for inbox receipts.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/database"
)

// PostgreSQLInboxRepository handles inbox persistence for PostgreSQL.
type PostgreSQLInboxRepository struct {
	db                 *sql.DB
	processedQuery     string
	recordQuery        string
	markProcessedQuery string
}

// NewPostgreSQLInboxRepository creates a repository over table.
func NewPostgreSQLInboxRepository(db *sql.DB, table string) *PostgreSQLInboxRepository {
	return &PostgreSQLInboxRepository{
		db: db,
		processedQuery: fmt.Sprintf(`SELECT EXISTS (
			SELECT 1 FROM %s WHERE message_id = $1 AND consumer_id = $2 AND processed_time IS NOT NULL
		)`, table),
		recordQuery: fmt.Sprintf(`INSERT INTO %s (message_id, consumer_id, received_time, processed_time)
			VALUES ($1, $2, $3, NULL)
			ON CONFLICT (message_id, consumer_id) DO NOTHING`, table),
		markProcessedQuery: fmt.Sprintf(`UPDATE %s SET processed_time = $1
			WHERE message_id = $2 AND consumer_id = $3 AND processed_time IS NULL`, table),
	}
}

// HasBeenProcessed reports whether consumerID finished handling messageID.
func (r *PostgreSQLInboxRepository) HasBeenProcessed(
	ctx context.Context,
	messageID uuid.UUID,
	consumerID string,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	var processed bool
	if err := querier.QueryRowContext(ctx, r.processedQuery, messageID, consumerID).Scan(&processed); err != nil {
		return false, err
	}
	return processed, nil
}

// RecordReceived inserts the receipt. It returns false when the pair was
// already recorded, which is the duplicate-delivery signal.
func (r *PostgreSQLInboxRepository) RecordReceived(
	ctx context.Context,
	messageID uuid.UUID,
	consumerID string,
	receivedTime time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, r.recordQuery, messageID, consumerID, receivedTime.UTC())
	if err != nil {
		return false, err
	}
	return inserted(result)
}

// MarkProcessed sets processed_time on the receipt.
func (r *PostgreSQLInboxRepository) MarkProcessed(
	ctx context.Context,
	messageID uuid.UUID,
	consumerID string,
	processedTime time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.markProcessedQuery, processedTime.UTC(), messageID, consumerID)
	return err
}

func inserted(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
