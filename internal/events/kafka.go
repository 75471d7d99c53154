package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	publishInitialInterval = 200 * time.Millisecond
	publishMaxRetries      = 5
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer   messageWriter
	log      *zap.Logger
	now      func() time.Time
	interval time.Duration
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(w messageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log, now: time.Now, interval: publishInitialInterval}
}

// PublishRoundSettled - ключ сообщения = id раунда, события одного раунда идут в одну партицию
func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e RoundSettled) error {
	return p.publish(ctx, strconv.FormatInt(e.RoundID, 10), TypeRoundSettled, e)
}

func (p *KafkaPublisher) PublishCommissionFailed(ctx context.Context, e CommissionFailed) error {
	return p.publish(ctx, e.SourceEventID, TypeCommissionFailed, e)
}

func (p *KafkaPublisher) publish(ctx context.Context, key, typ string, payload any) error {
	env := Envelope{
		ID:       uuid.NewString(),
		Type:     typ,
		TsUnixMs: p.now().UnixMilli(),
		Payload:  payload,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  p.now(),
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.interval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, publishMaxRetries), ctx)

	return backoff.RetryNotify(func() error {
		return p.writer.WriteMessages(ctx, msg)
	}, policy, func(err error, next time.Duration) {
		p.log.Warn("kafka publish failed, retrying",
			zap.String("type", typ),
			zap.String("key", key),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})
}
