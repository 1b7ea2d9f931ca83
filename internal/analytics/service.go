package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"civic/internal/cipher"
	"civic/internal/decision"
	"civic/internal/event"
	"civic/internal/pii"
	"civic/internal/platform/metrics"
)

// Service reacts to the two completion signals (ValidationResult from the
// validator, DataStored from PII storage) by re-attempting the cross-store
// join. The join is a pure function of "both records present": each attempt
// either forwards a complete record or is a logged no-op, so it can run any
// number of times in any order. ValidationRequest and DeletionRequest are
// logged for audit visibility only; this component never mutates a store.
type Service struct {
	decisions decision.Store
	piiStore  pii.Store
	crypto    cipher.Provider
	pipeline  Pipeline
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewService constructs the analytics reactor.
func NewService(decisions decision.Store, piiStore pii.Store, crypto cipher.Provider, pipeline Pipeline, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		decisions: decisions,
		piiStore:  piiStore,
		crypto:    crypto,
		pipeline:  pipeline,
		logger:    logger,
		metrics:   m,
	}
}

// Handle dispatches a bus envelope to the matching reaction.
func (s *Service) Handle(ctx context.Context, env event.Envelope) error {
	msg, err := event.Decode(env)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case event.ValidationRequest:
		s.logger.InfoContext(ctx, "validation request observed", "id", m.ID)
		return nil
	case event.ValidationResult:
		return s.join(ctx, m.ID)
	case event.DataStored:
		return s.join(ctx, m.ID)
	case event.DeletionRequest:
		s.logger.InfoContext(ctx, "deletion request observed", "id", m.ID)
		return nil
	default:
		return fmt.Errorf("analytics: unexpected event %s", event.TypeOf(msg))
	}
}

// join reads both stores concurrently and forwards only when both reads
// succeed. A missing record is expected during the eventual-consistency
// window between the two producers: the attempt ends as a no-op and the other
// producer's completion event triggers the next attempt. No retry is needed
// here.
func (s *Service) join(ctx context.Context, id string) error {
	var (
		decisionRec decision.Record
		piiRec      pii.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		decisionRec, err = s.decisions.Get(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		piiRec, err = s.piiStore.Get(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncJoin("incomplete")
		s.logger.InfoContext(ctx, "join incomplete, awaiting other producer", "id", id, "reason", err)
		return nil
	}

	start := time.Now()
	plain, err := cipher.DecryptFields(ctx, s.crypto, piiRec.EncryptedFields())
	s.metrics.ObserveFieldCrypto(time.Since(start).Seconds())
	if err != nil {
		s.metrics.IncJoin("error")
		return fmt.Errorf("decrypt pii for analytics %s: %w", id, err)
	}

	rec := Record{
		ID:       id,
		Decision: decisionRec,
		Person: Person{
			Username:    plain.Username,
			FullName:    plain.FullName,
			DateOfBirth: plain.DateOfBirth,
			Address:     plain.Address,
			PhoneNumber: plain.PhoneNumber,
		},
	}
	if err := s.pipeline.Forward(ctx, rec); err != nil {
		// Fire-and-forget: the pipeline is best-effort downstream fan-out.
		s.metrics.IncJoin("error")
		s.logger.ErrorContext(ctx, "analytics forward failed", "id", id, "error", err)
		return nil
	}
	s.metrics.IncJoin("forwarded")
	return nil
}
