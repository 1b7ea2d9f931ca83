// Package kafkabus is the Kafka-backed event transport. Envelopes are
// published as JSON records keyed by the record id they concern, so all events
// for one id land in one partition while distinct ids spread across the topic.
//
// Delivery is at-least-once: the consumer commits offsets only after a handler
// finishes without error, so failed invocations are redelivered.
package kafkabus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"civic/internal/event"
)

// headerDetailType carries the event type on each record so consumers can
// route without unmarshalling the envelope body.
const headerDetailType = "detail-type"

// Publisher produces envelopes to a single topic.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher creates a producer-only client for the given brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Publish synchronously produces the envelope. The record key is the id inside
// the payload when present, preserving per-id ordering within the partition.
func (p *Publisher) Publish(ctx context.Context, env event.Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	rec := &kgo.Record{
		Topic: p.topic,
		Key:   recordKey(env),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerDetailType, Value: []byte(env.DetailType)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", env.DetailType, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}

// recordKey extracts the id field shared by every payload in the closed event
// set. A missing id degrades to a nil key (round-robin partitioning).
func recordKey(env event.Envelope) []byte {
	var keyed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Detail.Payload, &keyed); err != nil || keyed.ID == "" {
		return nil
	}
	return []byte(keyed.ID)
}

// EnsureTopics creates the given topics if they do not already exist. Safe to
// call on every startup.
func EnsureTopics(ctx context.Context, brokers []string, topics ...string) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return fmt.Errorf("create kafka admin client: %w", err)
	}
	defer client.Close()

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}
