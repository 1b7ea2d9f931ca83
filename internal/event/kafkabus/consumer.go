package kafkabus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"civic/internal/event"
)

// Consumer polls a topic as part of a consumer group and dispatches each
// envelope to the handlers registered for its type. Offsets are committed per
// record after every matching handler succeeds; a handler error leaves the
// offset uncommitted so the broker redelivers.
type Consumer struct {
	client  *kgo.Client
	logger  *slog.Logger
	byType  map[event.Type][]event.Handler
	started bool
}

// NewConsumer creates a consumer-group client for the given brokers and topic.
func NewConsumer(brokers []string, topic, group string, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{
		client: client,
		logger: logger,
		byType: make(map[event.Type][]event.Handler),
	}, nil
}

// Subscribe registers a handler for the given event types. Must be called
// before Run.
func (c *Consumer) Subscribe(types []event.Type, handler event.Handler) {
	if c.started {
		panic("kafkabus: Subscribe after Run")
	}
	for _, t := range types {
		c.byType[t] = append(c.byType[t], handler)
	}
}

// Run polls until the context is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.started = true
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		fetches.EachRecord(func(rec *kgo.Record) {
			if c.dispatch(ctx, rec) {
				if err := c.client.CommitRecords(ctx, rec); err != nil {
					c.logger.ErrorContext(ctx, "offset commit failed",
						"topic", rec.Topic,
						"partition", rec.Partition,
						"offset", rec.Offset,
						"error", err,
					)
				}
			}
		})
	}
}

// dispatch reports whether the record was fully handled and may be committed.
// Records that no handler subscribes to are committed as handled: the type set
// is closed, so an unknown type is a decode error surfaced by the handler arm,
// not something to retry forever.
func (c *Consumer) dispatch(ctx context.Context, rec *kgo.Record) bool {
	var env event.Envelope
	if err := json.Unmarshal(rec.Value, &env); err != nil {
		c.logger.ErrorContext(ctx, "malformed envelope, skipping record",
			"topic", rec.Topic,
			"offset", rec.Offset,
			"error", err,
		)
		return true // poison record; redelivery cannot fix it
	}

	handled := true
	for _, h := range c.byType[env.DetailType] {
		if err := h.Handle(ctx, env); err != nil {
			c.logger.ErrorContext(ctx, "event handler failed",
				"detail_type", string(env.DetailType),
				"source", env.Source,
				"error", err,
			)
			handled = false
		}
	}
	return handled
}

// Close leaves the consumer group and releases the client.
func (c *Consumer) Close() {
	c.client.Close()
}
