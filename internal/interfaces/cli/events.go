package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/taskboard/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/errors"
)

// EventSource streams activity envelopes to a handler until ctx ends.
type EventSource interface {
	Run(ctx context.Context, handler kafka.EventHandler) error
	Close() error
}

// EventSourceFactory opens an EventSource for cfg.
type EventSourceFactory func(cfg kafka.ConsumerConfig, logger logging.Logger) (EventSource, error)

// TopicAdmin creates topics.
type TopicAdmin interface {
	EnsureTopic(ctx context.Context, cfg kafka.TopicConfig) error
	Close() error
}

// TopicAdminFactory connects a TopicAdmin to brokers.
type TopicAdminFactory func(brokers []string, logger logging.Logger) (TopicAdmin, error)

func newKafkaEventSource(cfg kafka.ConsumerConfig, logger logging.Logger) (EventSource, error) {
	c, err := kafka.NewConsumer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newKafkaTopicAdmin(brokers []string, logger logging.Logger) (TopicAdmin, error) {
	m, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newEventsCmd(sources EventSourceFactory, admins TopicAdminFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and provision the task activity topic",
	}
	cmd.AddCommand(newEventsTailCmd(sources), newEventsInitCmd(admins))
	return cmd
}

func newEventsTailCmd(sources EventSourceFactory) *cobra.Command {
	var (
		group         string
		fromBeginning bool
		limit         int
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print task activity events as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc := cliCtx.Config.Kafka
			if len(kc.Brokers) == 0 {
				return errors.New(errors.ErrCodeValidation, "kafka.brokers is not configured")
			}

			cfg := kafka.ConsumerConfig{
				Brokers:     kc.Brokers,
				Topic:       kc.Topic,
				GroupID:     group,
				StartOffset: "latest",
			}
			if fromBeginning {
				cfg.StartOffset = "earliest"
			}
			src, err := sources(cfg, cliCtx.Logger.Named("events"))
			if err != nil {
				return err
			}
			defer src.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			seen := 0
			return src.Run(ctx, func(_ context.Context, env *kafka.EventEnvelope) error {
				if err := PrintResult(cmd, envelopeView{env}); err != nil {
					return err
				}
				seen++
				if limit > 0 && seen >= limit {
					cancel()
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "taskboard-cli", "consumer group id")
	cmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "start from the earliest offset when the group has none committed")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after N events (0 = until interrupted)")
	return cmd
}

func newEventsInitCmd(admins TopicAdminFactory) *cobra.Command {
	var partitions, replication int
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the activity topic if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc := cliCtx.Config.Kafka
			if len(kc.Brokers) == 0 {
				return errors.New(errors.ErrCodeValidation, "kafka.brokers is not configured")
			}

			admin, err := admins(kc.Brokers, cliCtx.Logger.Named("events"))
			if err != nil {
				return err
			}
			defer admin.Close()

			topic := kafka.DefaultActivityTopic(kc.Topic)
			if partitions > 0 {
				topic.NumPartitions = partitions
			}
			if replication > 0 {
				topic.ReplicationFactor = replication
			}

			ctx, cancel := cliCtx.commandContext(cmd.Context())
			defer cancel()
			if err := admin.EnsureTopic(ctx, topic); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "topic %s ready (%d partitions, replication %d)\n",
				topic.Name, topic.NumPartitions, topic.ReplicationFactor)
			return nil
		},
	}
	cmd.Flags().IntVar(&partitions, "partitions", 0, "partition count (default 6)")
	cmd.Flags().IntVar(&replication, "replication", 0, "replication factor (default 1)")
	return cmd
}

type envelopeView struct {
	*kafka.EventEnvelope
}

func (v envelopeView) RenderText() string {
	return fmt.Sprintf("%s  %-24s %s  %s\n",
		v.Timestamp.UTC().Format(time.RFC3339), v.EventType, v.EventID, string(v.Payload))
}

//Personal.AI order the ending
