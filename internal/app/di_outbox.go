package app

import (
	"fmt"

	"github.com/allisson/relay/internal/database"
	outboxRepository "github.com/allisson/relay/internal/outbox/repository"
	outboxUsecase "github.com/allisson/relay/internal/outbox/usecase"
)

// OutboxRepository returns the outbox repository for the configured driver.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxRepository, error) {
	err := c.lazy(&c.outboxRepoInit, "outboxRepo", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for outbox repository: %w", err)
		}

		table := c.config.TableNames().Outbox
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.outboxRepo = outboxRepository.NewMySQLOutboxRepository(db, table)
		case database.DriverPostgres:
			c.outboxRepo = outboxRepository.NewPostgreSQLOutboxRepository(db, table)
		default:
			return unsupportedDriver(c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.outboxRepo, nil
}

// OutboxWriter returns the writer that enqueues messages in the caller's transaction.
func (c *Container) OutboxWriter() (*outboxUsecase.Writer, error) {
	err := c.lazy(&c.outboxWriterInit, "outboxWriter", func() error {
		repo, err := c.OutboxRepository()
		if err != nil {
			return fmt.Errorf("failed to get outbox repository for outbox writer: %w", err)
		}
		types, err := c.MessageTypes()
		if err != nil {
			return fmt.Errorf("failed to get message types for outbox writer: %w", err)
		}

		c.outboxWriter = outboxUsecase.NewWriter(repo, types, c.Serializers(), c.clock, c.config.SourceAddress)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.outboxWriter, nil
}

// Dispatcher returns the outbox dispatcher.
func (c *Container) Dispatcher() (*outboxUsecase.Dispatcher, error) {
	err := c.lazy(&c.dispatcherInit, "dispatcher", func() error {
		repo, err := c.OutboxRepository()
		if err != nil {
			return fmt.Errorf("failed to get outbox repository for dispatcher: %w", err)
		}
		types, err := c.MessageTypes()
		if err != nil {
			return fmt.Errorf("failed to get message types for dispatcher: %w", err)
		}
		bus, err := c.Bus()
		if err != nil {
			return fmt.Errorf("failed to get bus for dispatcher: %w", err)
		}
		deadLetters, err := c.OutboxDeadLetters()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
		}

		c.dispatcher = outboxUsecase.NewDispatcher(
			outboxUsecase.Config{
				BatchSize:                 c.config.OutboxBatchSize,
				PollInterval:              c.config.OutboxPollInterval,
				RetryDelay:                c.config.OutboxRetryDelay,
				MaxConcurrentDestinations: c.config.OutboxMaxConcurrentDestinations,
			},
			repo,
			types,
			bus,
			deadLetters,
			c.clock,
			businessMetrics,
			c.Logger(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.dispatcher, nil
}
