package decision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"civic/internal/cipher"
	"civic/internal/event"
	"civic/internal/platform/metrics"
)

// Service is the validator: it owns the decision record lifecycle and the
// eligibility rule. It reacts to ValidationRequest and DeletionRequest events
// and is stateless between invocations, so concurrent and duplicate
// deliveries are safe.
type Service struct {
	store   Store
	crypto  cipher.Provider
	bus     event.Bus
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the validator.
func NewService(store Store, crypto cipher.Provider, bus event.Bus, logger *slog.Logger, m *metrics.Metrics, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		crypto:  crypto,
		bus:     bus,
		logger:  logger,
		metrics: m,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handle dispatches a bus envelope to the matching reaction. Event types
// outside the validator's subscription set are rejected, not silently logged.
func (s *Service) Handle(ctx context.Context, env event.Envelope) error {
	msg, err := event.Decode(env)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case event.ValidationRequest:
		return s.handleValidationRequest(ctx, m)
	case event.DeletionRequest:
		return s.handleDeletionRequest(ctx, m)
	default:
		return fmt.Errorf("validator: unexpected event %s", event.TypeOf(msg))
	}
}

// handleValidationRequest runs the decision state machine for one submission:
// decrypt, write the record PENDING, compute the decision, fulfill the record,
// then notify. Every step before the fulfillment write is safe to re-run on
// redelivery; a failure after the PENDING write but before fulfillment leaves
// the record PENDING until the bus redelivers (or forever, if it never does).
func (s *Service) handleValidationRequest(ctx context.Context, msg event.ValidationRequest) error {
	start := time.Now()
	plain, err := cipher.DecryptFields(ctx, s.crypto, cipher.Fields{
		Username:    msg.Username,
		FullName:    msg.FullName,
		DateOfBirth: msg.DateOfBirth,
		Address:     msg.Address,
		PhoneNumber: msg.PhoneNumber,
	})
	s.metrics.ObserveFieldCrypto(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("decrypt validation request %s: %w", msg.ID, err)
	}

	now := s.clock()
	rec := Record{
		ID:       msg.ID,
		Status:   StatusPending,
		Decision: OutcomeIneligible,
		Created:  now,
		Updated:  now,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		// Nothing observable was written; redelivery restarts from scratch.
		return fmt.Errorf("write pending decision %s: %w", msg.ID, err)
	}

	outcome := s.evaluate(ctx, msg.ID, plain.DateOfBirth, now)

	rec.Status = StatusFulfilled
	rec.Decision = outcome
	rec.Updated = s.clock()
	if err := s.store.Put(ctx, rec); err != nil {
		// The record stays PENDING. Redelivery may resolve it; with no
		// redelivery this is the documented stuck-PENDING terminal state.
		return fmt.Errorf("fulfill decision %s: %w", msg.ID, err)
	}

	label := "ineligible"
	if outcome == OutcomeEligible {
		label = "eligible"
	}
	s.metrics.IncDecision(label)
	s.logger.InfoContext(ctx, "decision fulfilled", "id", msg.ID, "outcome", label)

	// The record is already authoritative; the event is only a trigger hint
	// for analytics, so publish failure is logged and swallowed.
	env, err := event.NewEnvelope(event.SourceValidator, event.ValidationResult{ID: msg.ID})
	if err != nil {
		s.logger.ErrorContext(ctx, "build validation result event", "id", msg.ID, "error", err)
		return nil
	}
	event.BestEffort(ctx, s.bus, env, s.logger)
	s.metrics.IncEventPublished(string(event.TypeValidationResult))
	return nil
}

// evaluate applies the age rule to the decrypted date of birth. A date that
// cannot be parsed resolves to ineligible rather than failing the invocation:
// the input is attacker-controlled and redelivery cannot make it parseable.
func (s *Service) evaluate(ctx context.Context, id, dateOfBirth string, now time.Time) Outcome {
	birth, err := ParseDateOfBirth(dateOfBirth)
	if err != nil {
		s.logger.WarnContext(ctx, "unparsable date of birth, treating as ineligible", "id", id, "error", err)
		return OutcomeIneligible
	}
	if AgeAt(birth, now) >= eligibleAge {
		return OutcomeEligible
	}
	return OutcomeIneligible
}

// handleDeletionRequest erases the decision record. Deleting an absent id is
// a no-op, so redelivery and out-of-order arrival are harmless. No completion
// event is emitted.
func (s *Service) handleDeletionRequest(ctx context.Context, msg event.DeletionRequest) error {
	if err := s.store.Delete(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete decision %s: %w", msg.ID, err)
	}
	s.logger.InfoContext(ctx, "decision record deleted", "id", msg.ID)
	return nil
}
