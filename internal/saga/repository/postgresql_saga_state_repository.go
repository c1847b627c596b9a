// Package repository provides data persistence implementations for saga state.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/allisson/relay/internal/database"
	"github.com/allisson/relay/internal/saga/domain"
)

const sagaColumns = `correlation_id, state_type, state_data, conversation_id, updated_time`

// PostgreSQLSagaStateRepository handles saga state persistence for PostgreSQL.
type PostgreSQLSagaStateRepository struct {
	db                *sql.DB
	loadQuery         string
	saveQuery         string
	conversationQuery string
	deleteQuery       string
}

// NewPostgreSQLSagaStateRepository creates a repository over table.
func NewPostgreSQLSagaStateRepository(db *sql.DB, table string) *PostgreSQLSagaStateRepository {
	return &PostgreSQLSagaStateRepository{
		db:        db,
		loadQuery: fmt.Sprintf(`SELECT %s FROM %s WHERE correlation_id = $1 AND state_type = $2`, sagaColumns, table),
		saveQuery: fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (correlation_id, state_type) DO UPDATE SET
				state_data = EXCLUDED.state_data,
				conversation_id = EXCLUDED.conversation_id,
				updated_time = EXCLUDED.updated_time`, table, sagaColumns),
		conversationQuery: fmt.Sprintf(`SELECT %s FROM %s WHERE conversation_id = $1
			ORDER BY updated_time ASC, correlation_id ASC`, sagaColumns, table),
		deleteQuery: fmt.Sprintf(`DELETE FROM %s WHERE correlation_id = $1 AND state_type = $2`, table),
	}
}

// Load returns the state stored for the key, or domain.ErrSagaStateNotFound.
func (r *PostgreSQLSagaStateRepository) Load(
	ctx context.Context,
	correlationID uuid.UUID,
	stateType string,
) (*domain.SagaState, error) {
	querier := database.GetTx(ctx, r.db)
	return loadSagaState(querier.QueryRowContext(ctx, r.loadQuery, correlationID, stateType))
}

// Save inserts the state or replaces the one stored under the same key.
func (r *PostgreSQLSagaStateRepository) Save(ctx context.Context, state *domain.SagaState) error {
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
func (r *PostgreSQLSagaStateRepository) FindByConversationID(
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
func (r *PostgreSQLSagaStateRepository) Delete(ctx context.Context, correlationID uuid.UUID, stateType string) error {
	querier := database.GetTx(ctx, r.db)

	_, err := querier.ExecContext(ctx, r.deleteQuery, correlationID, stateType)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSagaState(row rowScanner) (*domain.SagaState, error) {
	var state domain.SagaState
	err := row.Scan(
		&state.CorrelationID,
		&state.StateType,
		&state.StateData,
		&state.ConversationID,
		&state.UpdatedTime,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func loadSagaState(row *sql.Row) (*domain.SagaState, error) {
	state, err := scanSagaState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSagaStateNotFound
	}
	return state, err
}

func scanSagaStates(rows *sql.Rows) ([]*domain.SagaState, error) {
	states := make([]*domain.SagaState, 0)
	for rows.Next() {
		state, err := scanSagaState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return states, nil
}
