// Package gateway is the HTTP-facing component. It converts synchronous
// client calls into domain events or direct status reads and holds no
// business logic: eligibility is decided by the validator, storage by the
// record owners.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"civic/internal/cipher"
	"civic/internal/decision"
	"civic/internal/event"
	"civic/internal/platform/metrics"
	"civic/pkg/platform/sentinel"
)

// Submission carries the five personal fields of a validation request.
type Submission struct {
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
}

// StatusView is the caller-visible projection of a decision record. Decision
// is present only once the record is fulfilled.
type StatusView struct {
	Status   string `json:"status"`
	Decision *bool  `json:"decision,omitempty"`
}

// Service implements the three gateway operations. It reads only the decision
// store, never the PII store, so the status channel cannot leak PII existence
// or content.
type Service struct {
	decisions decision.Store
	crypto    cipher.Provider
	bus       event.Bus
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewService constructs the gateway service.
func NewService(decisions decision.Store, crypto cipher.Provider, bus event.Bus, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		decisions: decisions,
		crypto:    crypto,
		bus:       bus,
		logger:    logger,
		metrics:   m,
	}
}

// Submit encrypts the five personal fields, publishes exactly one
// ValidationRequest, and returns the fresh id without waiting for downstream
// processing. Encryption or publish failure returns an error and no id: the
// caller must never see an id for a submission that produced no event.
func (s *Service) Submit(ctx context.Context, sub Submission) (string, error) {
	id := uuid.NewString()

	start := time.Now()
	enc, err := cipher.EncryptFields(ctx, s.crypto, cipher.Fields{
		Username:    sub.Username,
		FullName:    sub.FullName,
		DateOfBirth: sub.DateOfBirth,
		Address:     sub.Address,
		PhoneNumber: sub.PhoneNumber,
	})
	s.metrics.ObserveFieldCrypto(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("encrypt submission: %w", err)
	}

	env, err := event.NewEnvelope(event.SourceGateway, event.ValidationRequest{
		ID:          id,
		Username:    enc.Username,
		FullName:    enc.FullName,
		DateOfBirth: enc.DateOfBirth,
		Address:     enc.Address,
		PhoneNumber: enc.PhoneNumber,
	})
	if err != nil {
		return "", err
	}
	if err := s.bus.Publish(ctx, env); err != nil {
		return "", fmt.Errorf("publish validation request: %w", err)
	}

	s.metrics.IncSubmission()
	s.metrics.IncEventPublished(string(event.TypeValidationRequest))
	s.logger.InfoContext(ctx, "validation request submitted", "id", id)
	return id, nil
}

// Status reads the decision record. An absent record reports PENDING: to the
// caller, "not yet processed" and "never existed" are indistinguishable by
// design.
func (s *Service) Status(ctx context.Context, id string) (StatusView, error) {
	rec, err := s.decisions.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return StatusView{Status: decision.StatusPending.String()}, nil
	}
	if err != nil {
		return StatusView{}, fmt.Errorf("read decision %s: %w", id, err)
	}
	if rec.Status == decision.StatusPending {
		return StatusView{Status: decision.StatusPending.String()}, nil
	}
	eligible := rec.Decision == decision.OutcomeEligible
	return StatusView{Status: rec.Status.String(), Decision: &eligible}, nil
}

// Delete publishes exactly one DeletionRequest and returns immediately.
// Actual erasure is asynchronous and unconfirmed.
func (s *Service) Delete(ctx context.Context, id string) error {
	env, err := event.NewEnvelope(event.SourceGateway, event.DeletionRequest{ID: id})
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, env); err != nil {
		return fmt.Errorf("publish deletion request: %w", err)
	}
	s.metrics.IncDeletionRequest()
	s.metrics.IncEventPublished(string(event.TypeDeletionRequest))
	s.logger.InfoContext(ctx, "deletion request submitted", "id", id)
	return nil
}
