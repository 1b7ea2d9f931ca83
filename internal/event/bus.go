package event

import (
	"context"
	"log/slog"
)

// Bus publishes envelopes to every subscriber of the envelope's type. Publish
// is the durable-mutation-adjacent path: callers that require delivery treat a
// returned error as fatal for the current invocation, while callers for whom
// the event is only a trigger hint use BestEffort instead.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
}

// Handler reacts to a single envelope. Returning an error signals the bus that
// the invocation failed and the envelope is eligible for redelivery.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, env Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

// BestEffort publishes an envelope and swallows any failure after logging it.
// Used when the authoritative store state is already correct and the event is
// only a notification: losing it degrades downstream fan-out, never
// correctness.
func BestEffort(ctx context.Context, bus Bus, env Envelope, logger *slog.Logger) {
	if err := bus.Publish(ctx, env); err != nil {
		logger.ErrorContext(ctx, "best-effort event publish failed",
			"detail_type", string(env.DetailType),
			"source", env.Source,
			"error", err,
		)
	}
}
