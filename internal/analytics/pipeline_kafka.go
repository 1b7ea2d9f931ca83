package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPipeline produces denormalized analytics records to a dedicated topic,
// keyed by record id. This is the production sink; the records it carries
// contain decrypted PII, so the topic must sit behind the same access
// boundary as the PII store.
type KafkaPipeline struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPipeline creates a producer-only client for the analytics topic.
func NewKafkaPipeline(brokers []string, topic string) (*KafkaPipeline, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
	)
	if err != nil {
		return nil, fmt.Errorf("create analytics producer: %w", err)
	}
	return &KafkaPipeline{client: client, topic: topic}, nil
}

func (p *KafkaPipeline) Forward(ctx context.Context, rec Record) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal analytics record: %w", err)
	}
	r := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(rec.ID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, r).FirstErr(); err != nil {
		return fmt.Errorf("produce analytics record: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *KafkaPipeline) Close() {
	p.client.Close()
}
