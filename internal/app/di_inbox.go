package app

import (
	"fmt"

	"github.com/allisson/relay/internal/database"
	inboxRepository "github.com/allisson/relay/internal/inbox/repository"
	inboxUsecase "github.com/allisson/relay/internal/inbox/usecase"
	sagaRepository "github.com/allisson/relay/internal/saga/repository"
	sagaUsecase "github.com/allisson/relay/internal/saga/usecase"
)

// InboxRepository returns the inbox repository for the configured driver.
func (c *Container) InboxRepository() (inboxUsecase.InboxRepository, error) {
	err := c.lazy(&c.inboxRepoInit, "inboxRepo", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for inbox repository: %w", err)
		}

		table := c.config.TableNames().Inbox
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.inboxRepo = inboxRepository.NewMySQLInboxRepository(db, table)
		case database.DriverPostgres:
			c.inboxRepo = inboxRepository.NewPostgreSQLInboxRepository(db, table)
		default:
			return unsupportedDriver(c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.inboxRepo, nil
}

// InboxGuard returns the guard that runs consumer handlers at most once per message.
func (c *Container) InboxGuard() (*inboxUsecase.Guard, error) {
	err := c.lazy(&c.inboxGuardInit, "inboxGuard", func() error {
		txManager, err := c.TxManager()
		if err != nil {
			return fmt.Errorf("failed to get tx manager for inbox guard: %w", err)
		}
		repo, err := c.InboxRepository()
		if err != nil {
			return fmt.Errorf("failed to get inbox repository for inbox guard: %w", err)
		}
		c.inboxGuard = inboxUsecase.NewGuard(txManager, repo, c.clock, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.inboxGuard, nil
}

// SagaStateRepository returns the saga state repository for the configured driver.
func (c *Container) SagaStateRepository() (sagaUsecase.SagaStateRepository, error) {
	err := c.lazy(&c.sagaRepoInit, "sagaRepo", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for saga state repository: %w", err)
		}

		table := c.config.TableNames().Saga
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.sagaRepo = sagaRepository.NewMySQLSagaStateRepository(db, table)
		case database.DriverPostgres:
			c.sagaRepo = sagaRepository.NewPostgreSQLSagaStateRepository(db, table)
		default:
			return unsupportedDriver(c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.sagaRepo, nil
}

// SagaStore returns the saga state store. States are serialized with the default serializer.
func (c *Container) SagaStore() (*sagaUsecase.SagaStore, error) {
	err := c.lazy(&c.sagaStoreInit, "sagaStore", func() error {
		repo, err := c.SagaStateRepository()
		if err != nil {
			return fmt.Errorf("failed to get saga state repository for saga store: %w", err)
		}
		c.sagaStore = sagaUsecase.NewSagaStore(repo, c.Serializers().Default(), c.clock)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.sagaStore, nil
}
