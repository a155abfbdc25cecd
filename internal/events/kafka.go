package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaPublisher struct {
	writer *kafkago.Writer
	log    *zap.Logger
}

const (
	publishAttempts = 3
	// events are written one at a time from request handlers, so the writer
	// flushes right away instead of waiting to fill a batch.
	writerBatchTimeout = 10 * time.Millisecond
	writerTimeout      = 5 * time.Second
)

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: writerBatchTimeout,
		WriteTimeout: writerTimeout,
		// Publish does its own retries.
		MaxAttempts: 1,
	}
	return &KafkaPublisher{writer: w, log: log}
}

// Publish writes the event, retrying up to publishAttempts times.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafkago.Message{
		Key:   []byte(env.ID),
		Value: b,
		Time:  env.OccurredAt,
	}

	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = p.writer.WriteMessages(ctx, msg); err == nil {
			return nil
		}
		p.log.Warn("kafka publish failed",
			zap.String("type", eventType), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		}
	}
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type Consumer struct {
	reader  *kafkago.Reader
	handler Handler
	log     *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, log *zap.Logger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, handler: handler, log: log}
}

// Run consumes until ctx is cancelled. Offsets are committed after the
// handler returns, whether or not it succeeded, so a poison message cannot
// block the partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("kafka fetch failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			c.log.Error("dropping malformed event", zap.Int64("offset", m.Offset), zap.Error(err))
		} else if err := c.handler.Handle(ctx, env); err != nil {
			c.log.Error("event handler failed",
				zap.String("type", env.Type), zap.String("id", env.ID), zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.log.Error("kafka commit failed", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
