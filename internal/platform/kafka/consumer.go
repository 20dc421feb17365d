package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"policyd/internal/platform/metrics"
)

// publisher is the slice of Producer the consumer needs for dead-lettering.
type publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// ConsumerOptions configures a consumer group member.
type ConsumerOptions struct {
	Brokers []string
	Group   string
	Topics  []string

	// MaxAttempts bounds handler invocations per record; after the last
	// failure the record is parked on the topic's dead-letter twin.
	MaxAttempts  int
	RetryBackoff time.Duration

	Handler    Handler
	DeadLetter publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Consumer reads records from a consumer group and feeds them to a handler,
// committing offsets only after each batch is fully processed.
type Consumer struct {
	client  *kgo.Client
	opts    ConsumerOptions
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewConsumer joins the consumer group and subscribes to the topics.
func NewConsumer(opts ConsumerOptions) (*Consumer, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(opts.Brokers...),
		kgo.ConsumerGroup(opts.Group),
		kgo.ConsumeTopics(opts.Topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, opts: opts, log: opts.Logger, metrics: opts.Metrics}, nil
}

// Run polls until the context is cancelled. Offsets are committed per fetch
// batch after every record has either been handled or dead-lettered, so a
// crash replays at-least-once and handlers must stay idempotent.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.ErrorContext(ctx, "kafka fetch error",
				slog.String("topic", topic),
				slog.Int("partition", int(partition)),
				slog.String("error", err.Error()))
		})

		// A record is committed only once it is settled: handled, or parked
		// on the dead-letter topic. When a record stays unsettled (cancelled
		// mid-flight, or its DLQ publish failed), its offset and everything
		// after it on that partition are withheld so redelivery re-engages.
		type partition struct {
			topic string
			id    int32
		}
		blocked := make(map[partition]bool)
		var processed []*kgo.Record
		fetches.EachRecord(func(record *kgo.Record) {
			p := partition{topic: record.Topic, id: record.Partition}
			if blocked[p] {
				return
			}
			if !c.process(ctx, Message{Topic: record.Topic, Key: record.Key, Value: record.Value}) {
				blocked[p] = true
				return
			}
			processed = append(processed, record)
		})

		if len(processed) > 0 {
			if err := c.client.CommitRecords(ctx, processed...); err != nil {
				c.log.ErrorContext(ctx, "kafka commit failed", slog.String("error", err.Error()))
			}
		}
	}
}

// process runs the handler with bounded retries and parks the record on the
// dead-letter topic when every attempt failed. It reports whether the record
// is settled and safe to commit.
func (c *Consumer) process(ctx context.Context, msg Message) bool {
	var err error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if err = c.opts.Handler(ctx, msg); err == nil {
			c.countConsumed(msg.Topic, "ok")
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if attempt < c.opts.MaxAttempts {
			c.log.WarnContext(ctx, "message handling failed, retrying",
				slog.String("topic", msg.Topic),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			select {
			case <-time.After(c.opts.RetryBackoff):
			case <-ctx.Done():
				return false
			}
		}
	}

	c.countConsumed(msg.Topic, "failed")
	c.log.ErrorContext(ctx, "message handling exhausted retries, dead-lettering",
		slog.String("topic", msg.Topic),
		slog.Int("attempts", c.opts.MaxAttempts),
		slog.String("error", err.Error()))

	dlq := Message{Topic: DLQTopic(msg.Topic), Key: msg.Key, Value: msg.Value}
	if dlqErr := c.opts.DeadLetter.Publish(ctx, dlq); dlqErr != nil {
		// Without the dead letter the record would vanish on commit; leave
		// it uncommitted so the broker redelivers it.
		c.log.ErrorContext(ctx, "dead-letter publish failed",
			slog.String("topic", dlq.Topic),
			slog.String("error", dlqErr.Error()))
		return false
	}
	if c.metrics != nil {
		c.metrics.MessagesDeadLettered.WithLabelValues(msg.Topic).Inc()
	}
	return true
}

func (c *Consumer) countConsumed(topic, outcome string) {
	if c.metrics != nil {
		c.metrics.MessagesConsumed.WithLabelValues(topic, outcome).Inc()
	}
}

// Close leaves the group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}
