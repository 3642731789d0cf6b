// Package kafka consumes a window's input from kafka topics through a consumer group.
package kafka

import (
	"context"

	"github.com/RuiFG/streaming/streaming-unique/connector"
	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
)

type Config struct {
	SaramaConfig *sarama.Config
	Addresses    []string
	Topics       []string
	GroupId      string
}

// NewSaramaConfig returns the consumer configuration used when Config.SaramaConfig is nil.
func NewSaramaConfig(version string) (*sarama.Config, error) {
	config := sarama.NewConfig()
	if version != "" {
		kafkaVersion, err := sarama.ParseKafkaVersion(version)
		if err != nil {
			return nil, errors.WithMessage(err, "invalid kafka version")
		}
		config.Version = kafkaVersion
	}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = false
	return config, nil
}

type Source[T any] struct {
	logger   log.Logger
	config   Config
	formatFn connector.FormatFn[T]
}

func NewSource[T any](config Config, formatFn connector.FormatFn[T], logger log.Logger) (*Source[T], error) {
	if len(config.Addresses) == 0 {
		return nil, errors.New("kafka addresses can't be empty")
	}
	if len(config.Topics) == 0 {
		return nil, errors.New("kafka topics can't be empty")
	}
	if config.GroupId == "" {
		return nil, errors.New("kafka group can't be empty")
	}
	if config.SaramaConfig == nil {
		var err error
		if config.SaramaConfig, err = NewSaramaConfig(""); err != nil {
			return nil, err
		}
	}
	return &Source[T]{logger: logger.Named("kafka"), config: config, formatFn: formatFn}, nil
}

// Run joins the consumer group and emits every claimed message until ctx is done.
func (s *Source[T]) Run(ctx context.Context, emit element.Emit[T]) error {
	consumerGroup, err := sarama.NewConsumerGroup(s.config.Addresses, s.config.GroupId, s.config.SaramaConfig)
	if err != nil {
		return errors.WithMessage(err, "can't create consumer group")
	}
	defer func() {
		if err := consumerGroup.Close(); err != nil {
			s.logger.Warnw("close consumer group error", "err", err)
		}
	}()
	h := &handler[T]{logger: s.logger, formatFn: s.formatFn, emit: emit}
	for {
		if err = consumerGroup.Consume(ctx, s.config.Topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			s.logger.Warnw("can't consume kafka", "err", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// handler is the sarama.ConsumerGroupHandler of a Source.
type handler[T any] struct {
	logger   log.Logger
	formatFn connector.FormatFn[T]
	emit     element.Emit[T]
}

func (h *handler[T]) Setup(session sarama.ConsumerGroupSession) error {
	h.logger.Infow("consumer group session started", "member", session.MemberID(), "claims", session.Claims())
	return nil
}

func (h *handler[T]) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *handler[T]) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if value, err := h.formatFn(message.Value); err != nil {
				h.logger.Warnw("skipping undecodable message", "topic", message.Topic,
					"partition", message.Partition, "offset", message.Offset, "err", err)
			} else {
				h.emit(&element.Event[T]{
					Value:        value,
					Timestamp:    message.Timestamp.UnixMilli(),
					HasTimestamp: !message.Timestamp.IsZero(),
				})
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
