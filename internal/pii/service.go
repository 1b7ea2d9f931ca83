package pii

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"civic/internal/event"
	"civic/internal/platform/metrics"
)

// Service is the PII storage reactor. It persists submitted records verbatim
// (fields stay ciphertext) and announces DataStored; it never decrypts.
type Service struct {
	store   Store
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

// NewService constructs the PII storage reactor.
func NewService(store Store, bus event.Bus, logger *slog.Logger, m *metrics.Metrics, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
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

// Handle dispatches a bus envelope to the matching reaction.
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
		return fmt.Errorf("pii-storage: unexpected event %s", event.TypeOf(msg))
	}
}

// handleValidationRequest writes the encrypted record and then announces it.
// A write failure aborts before any event, so redelivery retries cleanly. A
// publish failure after a successful write is an accepted gap: analytics also
// reacts to ValidationResult, which covers most of it.
func (s *Service) handleValidationRequest(ctx context.Context, msg event.ValidationRequest) error {
	now := s.clock()
	rec := Record{
		ID:          msg.ID,
		Username:    msg.Username,
		FullName:    msg.FullName,
		DateOfBirth: msg.DateOfBirth,
		Address:     msg.Address,
		PhoneNumber: msg.PhoneNumber,
		Created:     now,
		Updated:     now,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("write pii record %s: %w", msg.ID, err)
	}
	s.logger.InfoContext(ctx, "pii record stored", "id", msg.ID)

	env, err := event.NewEnvelope(event.SourcePiiStorage, event.DataStored{ID: msg.ID})
	if err != nil {
		s.logger.ErrorContext(ctx, "build data stored event", "id", msg.ID, "error", err)
		return nil
	}
	event.BestEffort(ctx, s.bus, env, s.logger)
	s.metrics.IncEventPublished(string(event.TypeDataStored))
	return nil
}

// handleDeletionRequest erases the PII record unconditionally. No completion
// event is emitted.
func (s *Service) handleDeletionRequest(ctx context.Context, msg event.DeletionRequest) error {
	if err := s.store.Delete(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete pii record %s: %w", msg.ID, err)
	}
	s.logger.InfoContext(ctx, "pii record deleted", "id", msg.ID)
	return nil
}
