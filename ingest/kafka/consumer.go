package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/theoremus-urban-solutions/siri-hub/config"
	"github.com/theoremus-urban-solutions/siri-hub/repository"
	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

// envelope is the payload carried on every ingest topic: the producing
// codespace plus the batch of entities for that topic's kind.
type envelope struct {
	Codespace string          `json:"codespace"`
	Items     json.RawMessage `json:"items"`
}

type handleFunc func(codespace string, items json.RawMessage) (repository.Stats, error)

// Consumer is a sarama consumer group feeding the configured per-kind
// topics into the repositories.
type Consumer struct {
	log      *logrus.Logger
	group    sarama.ConsumerGroup
	topics   []string
	handlers map[string]handleFunc
}

// NewConsumer connects to the brokers and binds each configured topic
// to its repository. Kinds with an empty topic are not consumed.
func NewConsumer(cfg config.KafkaConfig, log *logrus.Logger,
	vehicles *repository.VehicleRepository,
	timetables *repository.TimetableRepository,
	situations *repository.SituationRepository,
	production *repository.ProductionRepository,
) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	sc.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("connecting consumer group %q: %w", cfg.GroupID, err)
	}

	c := &Consumer{log: log, group: group, handlers: map[string]handleFunc{}}
	bind(c, cfg.Topics.VM, func(codespace string, items []siri.VehicleActivity) (repository.Stats, error) {
		_, stats, err := vehicles.AddAll(codespace, items)
		return stats, err
	})
	bind(c, cfg.Topics.ET, func(codespace string, items []siri.EstimatedVehicleJourney) (repository.Stats, error) {
		_, stats, err := timetables.AddAll(codespace, items)
		return stats, err
	})
	bind(c, cfg.Topics.SX, func(codespace string, items []siri.PtSituationElement) (repository.Stats, error) {
		_, stats, err := situations.AddAll(codespace, items)
		return stats, err
	})
	bind(c, cfg.Topics.PT, func(codespace string, items []siri.ProductionTimetableDelivery) (repository.Stats, error) {
		_, stats, err := production.AddAll(codespace, items)
		return stats, err
	})
	return c, nil
}

func bind[T any](c *Consumer, topic string, add func(codespace string, items []T) (repository.Stats, error)) {
	if topic == "" {
		return
	}
	c.topics = append(c.topics, topic)
	c.handlers[topic] = func(codespace string, raw json.RawMessage) (repository.Stats, error) {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return repository.Stats{}, fmt.Errorf("decoding batch: %w", err)
		}
		return add(codespace, items)
	}
}

// Run consumes until the context is cancelled. Sarama ends the Consume
// call on every rebalance, so it is re-entered in a loop.
func (c *Consumer) Run(ctx context.Context) error {
	if len(c.topics) == 0 {
		c.log.Warn("kafka ingest enabled but no topics configured")
		return nil
	}
	go func() {
		for err := range c.group.Errors() {
			c.log.WithError(err).Warn("kafka consumer error")
		}
	}()
	for {
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			c.log.WithError(err).Warn("kafka consume session ended")
			time.Sleep(300 * time.Millisecond)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error { return c.group.Close() }

func (c *Consumer) Setup(sess sarama.ConsumerGroupSession) error {
	c.log.WithField("claims", sess.Claims()).Info("kafka session established")
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim decodes each message's envelope and hands the batch to
// the topic's repository. Malformed messages are logged and marked so
// they are never redelivered; batches that fail to store are also
// marked since the producer will publish fresher data anyway.
func (c *Consumer) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	handle := c.handlers[claim.Topic()]
	for msg := range claim.Messages() {
		if handle == nil {
			sess.MarkMessage(msg, "")
			continue
		}
		fields := logrus.Fields{"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset}
		var env envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.log.WithError(err).WithFields(fields).Warn("decoding ingest envelope")
			sess.MarkMessage(msg, "")
			continue
		}
		if env.Codespace == "" {
			c.log.WithFields(fields).Warn("ingest envelope without codespace")
			sess.MarkMessage(msg, "")
			continue
		}
		if _, err := handle(env.Codespace, env.Items); err != nil {
			c.log.WithError(err).WithFields(fields).Warn("storing ingest batch")
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

var _ sarama.ConsumerGroupHandler = (*Consumer)(nil)
