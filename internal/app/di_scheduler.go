package app

import (
	"fmt"

	"github.com/allisson/relay/internal/database"
	schedulerHTTP "github.com/allisson/relay/internal/scheduler/http"
	schedulerRepository "github.com/allisson/relay/internal/scheduler/repository"
	schedulerUsecase "github.com/allisson/relay/internal/scheduler/usecase"
)

// ScheduledMessageRepository returns the scheduled message repository for the configured driver.
func (c *Container) ScheduledMessageRepository() (schedulerUsecase.ScheduledMessageRepository, error) {
	err := c.lazy(&c.scheduledRepoInit, "scheduledRepo", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for scheduled message repository: %w", err)
		}

		table := c.config.TableNames().Scheduled
		switch c.config.DBDriver {
		case database.DriverMySQL:
			c.scheduledRepo = schedulerRepository.NewMySQLScheduledMessageRepository(db, table)
		case database.DriverPostgres:
			c.scheduledRepo = schedulerRepository.NewPostgreSQLScheduledMessageRepository(db, table)
		default:
			return unsupportedDriver(c.config.DBDriver)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.scheduledRepo, nil
}

// Scheduler returns the message scheduler, which also runs the dispatch loop.
func (c *Container) Scheduler() (*schedulerUsecase.Scheduler, error) {
	err := c.lazy(&c.schedulerInit, "scheduler", func() error {
		repo, err := c.ScheduledMessageRepository()
		if err != nil {
			return fmt.Errorf("failed to get scheduled message repository for scheduler: %w", err)
		}
		types, err := c.MessageTypes()
		if err != nil {
			return fmt.Errorf("failed to get message types for scheduler: %w", err)
		}
		bus, err := c.Bus()
		if err != nil {
			return fmt.Errorf("failed to get bus for scheduler: %w", err)
		}
		deadLetters, err := c.SchedulerDeadLetters()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return fmt.Errorf("failed to get business metrics for scheduler: %w", err)
		}

		c.scheduler = schedulerUsecase.NewScheduler(
			schedulerUsecase.Config{
				BatchSize:    c.config.SchedulerBatchSize,
				PollInterval: c.config.SchedulerPollInterval,
				RetryDelay:   c.config.SchedulerRetryDelay,
			},
			repo,
			types,
			c.Serializers(),
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
	return c.scheduler, nil
}

// SchedulerUseCase returns the scheduler decorated with business metrics.
func (c *Container) SchedulerUseCase() (schedulerUsecase.SchedulerUseCase, error) {
	err := c.lazy(&c.schedulerUseCaseInit, "schedulerUseCase", func() error {
		scheduler, err := c.Scheduler()
		if err != nil {
			return err
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return fmt.Errorf("failed to get business metrics for scheduler use case: %w", err)
		}
		c.schedulerUseCase = schedulerUsecase.NewSchedulerUseCaseWithMetrics(scheduler, businessMetrics)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.schedulerUseCase, nil
}

// ScheduleHandler returns the admin API handler for scheduled messages.
func (c *Container) ScheduleHandler() (*schedulerHTTP.ScheduleHandler, error) {
	err := c.lazy(&c.scheduleHandlerInit, "scheduleHandler", func() error {
		useCase, err := c.SchedulerUseCase()
		if err != nil {
			return fmt.Errorf("failed to get scheduler use case for schedule handler: %w", err)
		}
		c.scheduleHandler = schedulerHTTP.NewScheduleHandler(useCase, c.clock, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.scheduleHandler, nil
}
