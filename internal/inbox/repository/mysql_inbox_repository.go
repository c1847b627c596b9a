package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/relay/internal/database"
	"github.com/allisson/relay/internal/errors"
)

// mysqlDuplicateEntry is the server error code for a unique key violation.
const mysqlDuplicateEntry = 1062

// MySQLInboxRepository handles inbox persistence for MySQL.
type MySQLInboxRepository struct {
	db                 *sql.DB
	processedQuery     string
	recordQuery        string
	markProcessedQuery string
}

// NewMySQLInboxRepository creates a repository over table.
func NewMySQLInboxRepository(db *sql.DB, table string) *MySQLInboxRepository {
	return &MySQLInboxRepository{
		db: db,
		processedQuery: fmt.Sprintf(`SELECT EXISTS (
			SELECT 1 FROM %s WHERE message_id = ? AND consumer_id = ? AND processed_time IS NOT NULL
		)`, table),
		recordQuery: fmt.Sprintf(`INSERT IGNORE INTO %s (message_id, consumer_id, received_time, processed_time)
			VALUES (?, ?, ?, NULL)`, table),
		markProcessedQuery: fmt.Sprintf(`UPDATE %s SET processed_time = ?
			WHERE message_id = ? AND consumer_id = ? AND processed_time IS NULL`, table),
	}
}

// HasBeenProcessed reports whether consumerID finished handling messageID.
func (r *MySQLInboxRepository) HasBeenProcessed(
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
func (r *MySQLInboxRepository) RecordReceived(
	ctx context.Context,
	messageID uuid.UUID,
	consumerID string,
	receivedTime time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx, r.recordQuery, messageID, consumerID, receivedTime.UTC())
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return false, nil
		}
		return false, err
	}
	return inserted(result)
}

// MarkProcessed sets processed_time on the receipt.
func (r *MySQLInboxRepository) MarkProcessed(
	ctx context.Context,
	messageID uuid.UUID,
	consumerID string,
	processedTime time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.markProcessedQuery, processedTime.UTC(), messageID, consumerID)
	return err
}
