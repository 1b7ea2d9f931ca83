//go:build integration

package kafkabus_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"civic/internal/event"
	"civic/internal/event/kafkabus"
	"civic/pkg/testutil/containers"
)

type recorder struct {
	mu   sync.Mutex
	envs []event.Envelope
	err  error
}

func (r *recorder) Handle(_ context.Context, env event.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envs)
}

func (r *recorder) first() event.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.envs[0]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startConsumer(t *testing.T, brokers []string, topic, group string, types []event.Type, h event.Handler) func() {
	t.Helper()
	consumer, err := kafkabus.NewConsumer(brokers, topic, group, testLogger())
	require.NoError(t, err)
	consumer.Subscribe(types, h)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()

	stop := func() {
		cancel()
		consumer.Close()
		<-done
	}
	t.Cleanup(stop)
	return stop
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rp := containers.GetManager().GetRedpanda(t)
	topic := "civic-events-" + uuid.NewString()

	require.NoError(t, kafkabus.EnsureTopics(ctx, rp.Brokers, topic))

	publisher, err := kafkabus.NewPublisher(rp.Brokers, topic)
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	rec := &recorder{}
	startConsumer(t, rp.Brokers, topic, "group-"+uuid.NewString(),
		[]event.Type{event.TypeValidationRequest}, rec)

	sent, err := event.NewEnvelope(event.SourceGateway, event.ValidationRequest{
		ID:       uuid.NewString(),
		Username: "ct-username",
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, sent))

	require.Eventually(t, func() bool { return rec.count() >= 1 }, 30*time.Second, 100*time.Millisecond)

	got := rec.first()
	require.Equal(t, sent.DetailType, got.DetailType)
	require.Equal(t, sent.Source, got.Source)

	msg, err := event.Decode(got)
	require.NoError(t, err)
	decoded, ok := msg.(event.ValidationRequest)
	require.True(t, ok)
	require.Equal(t, "ct-username", decoded.Username)
}

func TestSubscriptionTypesFilterDelivery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rp := containers.GetManager().GetRedpanda(t)
	topic := "civic-events-" + uuid.NewString()

	require.NoError(t, kafkabus.EnsureTopics(ctx, rp.Brokers, topic))

	publisher, err := kafkabus.NewPublisher(rp.Brokers, topic)
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	deletions := &recorder{}
	startConsumer(t, rp.Brokers, topic, "group-"+uuid.NewString(),
		[]event.Type{event.TypeDeletionRequest}, deletions)

	id := uuid.NewString()
	reqEnv, err := event.NewEnvelope(event.SourceGateway, event.ValidationRequest{ID: id})
	require.NoError(t, err)
	delEnv, err := event.NewEnvelope(event.SourceGateway, event.DeletionRequest{ID: id})
	require.NoError(t, err)

	require.NoError(t, publisher.Publish(ctx, reqEnv))
	require.NoError(t, publisher.Publish(ctx, delEnv))

	require.Eventually(t, func() bool { return deletions.count() >= 1 }, 30*time.Second, 100*time.Millisecond)
	require.Equal(t, 1, deletions.count(), "only subscribed types are dispatched")
	require.Equal(t, event.TypeDeletionRequest, deletions.first().DetailType)
}

func TestUncommittedRecordIsRedelivered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rp := containers.GetManager().GetRedpanda(t)
	topic := "civic-events-" + uuid.NewString()
	group := "group-" + uuid.NewString()

	require.NoError(t, kafkabus.EnsureTopics(ctx, rp.Brokers, topic))

	publisher, err := kafkabus.NewPublisher(rp.Brokers, topic)
	require.NoError(t, err)
	t.Cleanup(publisher.Close)

	types := []event.Type{event.TypeValidationRequest}

	// First consumer fails every delivery, so the offset is never committed.
	failing := &recorder{err: errors.New("handler broken")}
	stopFailing := startConsumer(t, rp.Brokers, topic, group, types, failing)

	env, err := event.NewEnvelope(event.SourceGateway, event.ValidationRequest{ID: uuid.NewString()})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, env))

	require.Eventually(t, func() bool { return failing.count() >= 1 }, 30*time.Second, 100*time.Millisecond)
	stopFailing()

	// A replacement in the same group picks the record up again.
	succeeding := &recorder{}
	startConsumer(t, rp.Brokers, topic, group, types, succeeding)

	require.Eventually(t, func() bool { return succeeding.count() >= 1 }, 30*time.Second, 100*time.Millisecond)
}

func TestEnsureTopicsIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rp := containers.GetManager().GetRedpanda(t)
	topic := "civic-events-" + uuid.NewString()

	require.NoError(t, kafkabus.EnsureTopics(ctx, rp.Brokers, topic))
	require.NoError(t, kafkabus.EnsureTopics(ctx, rp.Brokers, topic))
}
