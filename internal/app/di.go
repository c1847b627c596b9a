// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/relay/internal/clock"
	"github.com/allisson/relay/internal/config"
	"github.com/allisson/relay/internal/database"
	"github.com/allisson/relay/internal/errors"
	"github.com/allisson/relay/internal/http"
	inboxUsecase "github.com/allisson/relay/internal/inbox/usecase"
	"github.com/allisson/relay/internal/messaging/deadletter"
	"github.com/allisson/relay/internal/messaging/registry"
	"github.com/allisson/relay/internal/messaging/serializer"
	"github.com/allisson/relay/internal/messaging/transport"
	"github.com/allisson/relay/internal/messaging/transport/kafka"
	"github.com/allisson/relay/internal/messaging/transport/pubsub"
	"github.com/allisson/relay/internal/metrics"
	outboxUsecase "github.com/allisson/relay/internal/outbox/usecase"
	sagaUsecase "github.com/allisson/relay/internal/saga/usecase"
	schedulerHTTP "github.com/allisson/relay/internal/scheduler/http"
	schedulerUsecase "github.com/allisson/relay/internal/scheduler/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	clock           clock.Clock
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Messaging
	types                *registry.Registry
	serializers          *serializer.Set
	avro                 *serializer.Avro
	pubsubHost           *pubsub.Host
	kafkaHost            *kafka.Host
	hostProvider         transport.HostProvider
	bus                  *transport.Bus
	outboxDeadLetters    *deadletter.Sender
	schedulerDeadLetters *deadletter.Sender

	// Repositories
	outboxRepo    outboxUsecase.OutboxRepository
	scheduledRepo schedulerUsecase.ScheduledMessageRepository
	inboxRepo     inboxUsecase.InboxRepository
	sagaRepo      sagaUsecase.SagaStateRepository

	// Use Cases
	outboxWriter     *outboxUsecase.Writer
	dispatcher       *outboxUsecase.Dispatcher
	scheduler        *schedulerUsecase.Scheduler
	schedulerUseCase schedulerUsecase.SchedulerUseCase
	inboxGuard       *inboxUsecase.Guard
	sagaStore        *sagaUsecase.SagaStore

	// Servers
	scheduleHandler *schedulerHTTP.ScheduleHandler
	httpServer      *http.Server
	metricsServer   *http.MetricsServer

	mu                       sync.Mutex
	loggerInit               sync.Once
	dbInit                   sync.Once
	txManagerInit            sync.Once
	metricsProviderInit      sync.Once
	businessMetricsInit      sync.Once
	typesInit                sync.Once
	serializersInit          sync.Once
	hostProviderInit         sync.Once
	busInit                  sync.Once
	outboxDeadLettersInit    sync.Once
	schedulerDeadLettersInit sync.Once
	outboxRepoInit           sync.Once
	scheduledRepoInit        sync.Once
	inboxRepoInit            sync.Once
	sagaRepoInit             sync.Once
	outboxWriterInit         sync.Once
	dispatcherInit           sync.Once
	schedulerInit            sync.Once
	schedulerUseCaseInit     sync.Once
	inboxGuardInit           sync.Once
	sagaStoreInit            sync.Once
	scheduleHandlerInit      sync.Once
	httpServerInit           sync.Once
	metricsServerInit        sync.Once
	initErrors               map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		clock:      clock.System{},
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Clock returns the clock shared by every component.
func (c *Container) Clock() clock.Clock {
	return c.clock
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// lazy runs init once under name and replays its error on later calls.
func (c *Container) lazy(once *sync.Once, name string, init func() error) error {
	once.Do(func() {
		if err := init(); err != nil {
			c.mu.Lock()
			c.initErrors[name] = err
			c.mu.Unlock()
		}
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	err := c.lazy(&c.dbInit, "db", func() error {
		var err error
		c.db, err = c.initDB()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	err := c.lazy(&c.txManagerInit, "txManager", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for tx manager: %w", err)
		}
		c.txManager = database.NewTxManager(db)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	err := c.lazy(&c.metricsProviderInit, "metricsProvider", func() error {
		if !c.config.MetricsEnabled {
			return nil
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			return fmt.Errorf("failed to create metrics provider: %w", err)
		}
		c.metricsProvider = provider
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	err := c.lazy(&c.businessMetricsInit, "businessMetrics", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return err
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return nil
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return fmt.Errorf("failed to create business metrics: %w", err)
		}
		c.businessMetrics = bm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the admin API server with its router configured.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	err := c.lazy(&c.httpServerInit, "httpServer", func() error {
		db, err := c.DB()
		if err != nil {
			return fmt.Errorf("failed to get database for http server: %w", err)
		}
		handler, err := c.ScheduleHandler()
		if err != nil {
			return fmt.Errorf("failed to get schedule handler for http server: %w", err)
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			return fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}

		server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
		server.SetupRouter(ctx, c.config, handler, provider)
		c.httpServer = server
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	err := c.lazy(&c.metricsServerInit, "metricsServer", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
		}
		if provider == nil {
			return nil
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource, servers first and the database last.
func (c *Container) Shutdown(ctx context.Context) error {
	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.kafkaHost != nil {
		if err := c.kafkaHost.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("kafka host close: %w", err))
		}
	}

	if c.pubsubHost != nil {
		if err := c.pubsubHost.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("pubsub host shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(context.Background(), database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func unsupportedDriver(driver string) error {
	return errors.Wrapf(errors.ErrInvalidInput, "unsupported database driver: %s", driver)
}
