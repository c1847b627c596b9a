package app

import (
	"fmt"
	"log/slog"

	"github.com/allisson/relay/internal/messaging/deadletter"
	"github.com/allisson/relay/internal/messaging/domain"
	"github.com/allisson/relay/internal/messaging/registry"
	"github.com/allisson/relay/internal/messaging/serializer"
	"github.com/allisson/relay/internal/messaging/transport"
	"github.com/allisson/relay/internal/messaging/transport/kafka"
	"github.com/allisson/relay/internal/messaging/transport/pubsub"
)

// MessageTypes returns the registry. Names listed in RELAY_MESSAGE_TYPES are
// registered as raw payloads so the stand-alone binaries can relay them.
func (c *Container) MessageTypes() (*registry.Registry, error) {
	err := c.lazy(&c.typesInit, "types", func() error {
		types := registry.New()
		for _, name := range c.config.MessageTypeNames() {
			if err := types.RegisterRaw(name); err != nil {
				return fmt.Errorf("failed to register message type %q: %w", name, err)
			}
		}
		c.types = types
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.types, nil
}

// Serializers returns the serializer set. JSON is the default; Avro is
// selected by content type once schemas are registered on it.
func (c *Container) Serializers() *serializer.Set {
	_ = c.lazy(&c.serializersInit, "serializers", func() error {
		c.avro = serializer.NewAvro()
		c.serializers = serializer.NewSet(serializer.NewJSON(), c.avro)
		return nil
	})
	return c.serializers
}

// Avro returns the Avro serializer of the set, for schema registration.
func (c *Container) Avro() *serializer.Avro {
	c.Serializers()
	return c.avro
}

// HostProvider returns the transport router, wrapped in circuit breakers when enabled.
func (c *Container) HostProvider() (transport.HostProvider, error) {
	err := c.lazy(&c.hostProviderInit, "hostProvider", func() error {
		logger := c.Logger()
		router := transport.NewRouter()

		c.pubsubHost = pubsub.NewHost(logger)
		router.Handle(pubsub.MemScheme, c.pubsubHost)

		if brokers := c.config.Brokers(); len(brokers) > 0 {
			c.kafkaHost = kafka.NewHost(brokers, logger)
			router.Handle(kafka.Scheme, c.kafkaHost)
		}

		logger.Info("transport hosts registered", slog.Any("schemes", router.Schemes()))

		if !c.config.BreakerEnabled {
			c.hostProvider = router
			return nil
		}
		c.hostProvider = transport.NewBreakerHostProvider(router, transport.BreakerConfig{
			ConsecutiveFailures: c.config.BreakerConsecutiveFailures,
			OpenTimeout:         c.config.BreakerOpenTimeout,
		}, logger)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.hostProvider, nil
}

// Bus returns the message bus used by the dispatcher and the scheduler.
func (c *Container) Bus() (*transport.Bus, error) {
	err := c.lazy(&c.busInit, "bus", func() error {
		hosts, err := c.HostProvider()
		if err != nil {
			return fmt.Errorf("failed to get host provider for bus: %w", err)
		}
		c.bus = transport.NewBus(hosts, transport.NewPrefixTopology(c.config.PublishAddressPrefix))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.bus, nil
}

// OutboxDeadLetters returns the dead-letter sender for undeliverable outbox messages.
func (c *Container) OutboxDeadLetters() (*deadletter.Sender, error) {
	err := c.lazy(&c.outboxDeadLettersInit, "outboxDeadLetters", func() error {
		sender, err := c.newDeadLetterSender(c.config.OutboxDeadLetterAddress)
		if err != nil {
			return fmt.Errorf("failed to create outbox dead-letter sender: %w", err)
		}
		c.outboxDeadLetters = sender
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.outboxDeadLetters, nil
}

// SchedulerDeadLetters returns the dead-letter sender for invalid scheduled messages.
func (c *Container) SchedulerDeadLetters() (*deadletter.Sender, error) {
	err := c.lazy(&c.schedulerDeadLettersInit, "schedulerDeadLetters", func() error {
		sender, err := c.newDeadLetterSender(c.config.SchedulerDeadLetterAddress)
		if err != nil {
			return fmt.Errorf("failed to create scheduler dead-letter sender: %w", err)
		}
		c.schedulerDeadLetters = sender
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.schedulerDeadLetters, nil
}

// newDeadLetterSender builds a sender for raw. An empty raw yields an
// unconfigured sender and rejected messages are dropped.
func (c *Container) newDeadLetterSender(raw string) (*deadletter.Sender, error) {
	hosts, err := c.HostProvider()
	if err != nil {
		return nil, err
	}

	var address domain.Address
	if raw != "" {
		address, err = domain.ParseAddress(raw)
		if err != nil {
			return nil, err
		}
	}
	return deadletter.NewSender(hosts, address, c.clock, c.Logger()), nil
}
