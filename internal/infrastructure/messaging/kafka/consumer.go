package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// StartOffset is "earliest" or "latest"; it applies when the group has no
	// committed offset.
	StartOffset    string
	MaxWait        time.Duration
	SessionTimeout time.Duration
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler processes one decoded envelope.  Returning an error stops the
// consumer without committing the message.
type EventHandler func(ctx context.Context, env *EventEnvelope) error

// Consumer reads activity events for a consumer group.
type Consumer struct {
	reader  ReaderInterface
	config  ConsumerConfig
	logger  logging.Logger
	running atomic.Bool

	consumed atomic.Int64
	skipped  atomic.Int64
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Topic == "" {
		cfg.Topic = TopicTaskActivity
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MaxWait:        cfg.MaxWait,
		SessionTimeout: cfg.SessionTimeout,
		StartOffset:    kafka.FirstOffset,
	}
	if cfg.StartOffset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	return &Consumer{
		reader: kafka.NewReader(readerCfg),
		config: cfg,
		logger: logger,
	}, nil
}

// Run fetches messages until ctx is cancelled or handler fails.  Messages
// that are not valid envelopes are logged and committed.
func (c *Consumer) Run(ctx context.Context, handler EventHandler) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.logger.Info("Kafka consumer started",
		logging.String("topic", c.config.Topic),
		logging.String("group", c.config.GroupID))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "fetch message failed")
		}

		env, err := MessageToEventEnvelope(m)
		if err != nil {
			c.skipped.Add(1)
			c.logger.Warn("Skipping undecodable message",
				logging.Int64("offset", m.Offset),
				logging.Int("partition", m.Partition),
				logging.Err(err))
		} else {
			if err := handler(ctx, env); err != nil {
				return err
			}
			c.consumed.Add(1)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "commit message failed")
		}
	}
}

// Consumed returns the number of envelopes handed to the handler.
func (c *Consumer) Consumed() int64 { return c.consumed.Load() }

// Skipped returns the number of undecodable messages committed without
// handling.
func (c *Consumer) Skipped() int64 { return c.skipped.Load() }

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "Brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "GroupID required")
	}
	return nil
}

//Personal.AI order the ending
