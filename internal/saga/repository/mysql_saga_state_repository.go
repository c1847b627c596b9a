package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/database"
	"github.com/allisson/relay/internal/saga/domain"
)

// MySQLSagaStateRepository handles saga state persistence for MySQL.
type MySQLSagaStateRepository struct {
	db                *sql.DB
	loadQuery         string
	saveQuery         string
	conversationQuery string
	deleteQuery       string
}

// NewMySQLSagaStateRepository creates a repository over table.
func NewMySQLSagaStateRepository(db *sql.DB, table string) *MySQLSagaStateRepository {
	return &MySQLSagaStateRepository{
		db:        db,
		loadQuery: fmt.Sprintf(`SELECT %s FROM %s WHERE correlation_id = ? AND state_type = ?`, sagaColumns, table),
		saveQuery: fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				state_data = VALUES(state_data),
				conversation_id = VALUES(conversation_id),
				updated_time = VALUES(updated_time)`, table, sagaColumns),
		conversationQuery: fmt.Sprintf(`SELECT %s FROM %s WHERE conversation_id = ?
			ORDER BY updated_time ASC, correlation_id ASC`, sagaColumns, table),
		deleteQuery: fmt.Sprintf(`DELETE FROM %s WHERE correlation_id = ? AND state_type = ?`, table),
	}
}

// Load returns the state stored for the key, or domain.ErrSagaStateNotFound.
func (r *MySQLSagaStateRepository) Load(
	ctx context.Context,
	correlationID uuid.UUID,
	stateType string,
) (*domain.SagaState, error) {
	querier := database.GetTx(ctx, r.db)
	return loadSagaState(querier.QueryRowContext(ctx, r.loadQuery, correlationID, stateType))
}

// Save inserts the state or replaces the one stored under the same key.
func (r *MySQLSagaStateRepository) Save(ctx context.Context, state *domain.SagaState) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.saveQuery,
		state.CorrelationID,
		state.StateType,
		state.StateData,
		state.ConversationID,
		state.UpdatedTime.UTC(),
	)
	return err
}

// FindByConversationID returns every state sharing conversationID.
func (r *MySQLSagaStateRepository) FindByConversationID(
	ctx context.Context,
	conversationID uuid.UUID,
) ([]*domain.SagaState, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(ctx, r.conversationQuery, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanSagaStates(rows)
}

// Delete removes the state stored for the key. Missing keys are ignored.
func (r *MySQLSagaStateRepository) Delete(ctx context.Context, correlationID uuid.UUID, stateType string) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.deleteQuery, correlationID, stateType)
	return err
}
