package decision

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civic/internal/cipher"
	"civic/internal/event"
	"civic/pkg/platform/sentinel"
)

// captureBus records published envelopes, failing when err is set.
type captureBus struct {
	mu   sync.Mutex
	envs []event.Envelope
	err  error
}

func (b *captureBus) Publish(_ context.Context, env event.Envelope) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.envs = append(b.envs, env)
	return nil
}

func (b *captureBus) published(t event.Type) []event.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event.Envelope
	for _, env := range b.envs {
		if env.DetailType == t {
			out = append(out, env)
		}
	}
	return out
}

// flakyStore fails Put calls numbered failFrom and later (1-based).
type flakyStore struct {
	Store
	puts     int
	failFrom int
}

func (s *flakyStore) Put(ctx context.Context, rec Record) error {
	s.puts++
	if s.failFrom > 0 && s.puts >= s.failFrom {
		return errors.New("store unavailable")
	}
	return s.Store.Put(ctx, rec)
}

type ServiceSuite struct {
	suite.Suite
	ctx    context.Context
	store  *InMemoryStore
	bus    *captureBus
	crypto cipher.Provider
	now    time.Time
	svc    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.bus = &captureBus{}
	key, err := cipher.GenerateKey()
	s.Require().NoError(err)
	s.crypto, err = cipher.NewXChaCha(key)
	s.Require().NoError(err)
	s.now = date(2024, time.June, 1)
	s.svc = NewService(s.store, s.crypto, s.bus, slog.Default(), nil,
		WithClock(func() time.Time { return s.now }))
}

// requestEnvelope builds a ValidationRequest envelope with all five fields
// encrypted, the way the gateway emits them.
func (s *ServiceSuite) requestEnvelope(id, dateOfBirth string) event.Envelope {
	enc, err := cipher.EncryptFields(s.ctx, s.crypto, cipher.Fields{
		Username:    "alice",
		FullName:    "Alice Liddell",
		DateOfBirth: dateOfBirth,
		Address:     "742 Evergreen Terrace",
		PhoneNumber: "+1 555 0100",
	})
	s.Require().NoError(err)

	env, err := event.NewEnvelope(event.SourceGateway, event.ValidationRequest{
		ID:          id,
		Username:    enc.Username,
		FullName:    enc.FullName,
		DateOfBirth: enc.DateOfBirth,
		Address:     enc.Address,
		PhoneNumber: enc.PhoneNumber,
	})
	s.Require().NoError(err)
	return env
}

func (s *ServiceSuite) deletionEnvelope(id string) event.Envelope {
	env, err := event.NewEnvelope(event.SourceGateway, event.DeletionRequest{ID: id})
	s.Require().NoError(err)
	return env
}

func (s *ServiceSuite) TestValidationRequestEligible() {
	id := uuid.NewString()
	s.Require().NoError(s.svc.Handle(s.ctx, s.requestEnvelope(id, "2000-01-01")))

	rec, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StatusFulfilled, rec.Status)
	s.Equal(OutcomeEligible, rec.Decision)
	s.Equal(s.now, rec.Created)

	results := s.bus.published(event.TypeValidationResult)
	s.Require().Len(results, 1)
	s.Equal(event.SourceValidator, results[0].Source)

	msg, err := event.Decode(results[0])
	s.Require().NoError(err)
	s.Equal(event.ValidationResult{ID: id}, msg)
}

func (s *ServiceSuite) TestValidationRequestIneligible() {
	id := uuid.NewString()
	s.Require().NoError(s.svc.Handle(s.ctx, s.requestEnvelope(id, "2010-01-01")))

	rec, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StatusFulfilled, rec.Status)
	s.Equal(OutcomeIneligible, rec.Decision)
	s.Len(s.bus.published(event.TypeValidationResult), 1)
}

func (s *ServiceSuite) TestEighteenthBirthdayBoundary() {
	s.Run("exactly eighteen today is eligible", func() {
		id := uuid.NewString()
		s.Require().NoError(s.svc.Handle(s.ctx, s.requestEnvelope(id, "2006-06-01")))
		rec, err := s.store.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(OutcomeEligible, rec.Decision)
	})

	s.Run("one day short is ineligible", func() {
		id := uuid.NewString()
		s.Require().NoError(s.svc.Handle(s.ctx, s.requestEnvelope(id, "2006-06-02")))
		rec, err := s.store.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(OutcomeIneligible, rec.Decision)
	})
}

func (s *ServiceSuite) TestUnparsableDateOfBirthIsIneligible() {
	id := uuid.NewString()
	s.Require().NoError(s.svc.Handle(s.ctx, s.requestEnvelope(id, "yesterday")))

	rec, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StatusFulfilled, rec.Status)
	s.Equal(OutcomeIneligible, rec.Decision)
}

func (s *ServiceSuite) TestRedeliveryIsIdempotent() {
	id := uuid.NewString()
	env := s.requestEnvelope(id, "2000-01-01")

	s.Require().NoError(s.svc.Handle(s.ctx, env))
	first, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Handle(s.ctx, env))
	second, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)

	s.Equal(first.Status, second.Status)
	s.Equal(first.Decision, second.Decision)
}

func (s *ServiceSuite) TestFulfillFailureLeavesPending() {
	flaky := &flakyStore{Store: s.store, failFrom: 2}
	svc := NewService(flaky, s.crypto, s.bus, slog.Default(), nil,
		WithClock(func() time.Time { return s.now }))

	id := uuid.NewString()
	err := svc.Handle(s.ctx, s.requestEnvelope(id, "2000-01-01"))
	s.Require().Error(err)

	rec, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StatusPending, rec.Status)
	s.Empty(s.bus.published(event.TypeValidationResult))
}

func (s *ServiceSuite) TestPendingWriteFailureLeavesNothing() {
	flaky := &flakyStore{Store: s.store, failFrom: 1}
	svc := NewService(flaky, s.crypto, s.bus, slog.Default(), nil,
		WithClock(func() time.Time { return s.now }))

	id := uuid.NewString()
	err := svc.Handle(s.ctx, s.requestEnvelope(id, "2000-01-01"))
	s.Require().Error(err)

	_, err = s.store.Get(s.ctx, id)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestResultPublishFailureIsSwallowed() {
	bus := &captureBus{err: errors.New("broker down")}
	svc := NewService(s.store, s.crypto, bus, slog.Default(), nil,
		WithClock(func() time.Time { return s.now }))

	id := uuid.NewString()
	s.Require().NoError(svc.Handle(s.ctx, s.requestEnvelope(id, "2000-01-01")))

	// The record is authoritative even when the notification is lost.
	rec, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StatusFulfilled, rec.Status)
}

func (s *ServiceSuite) TestDecryptFailureReturnsError() {
	env, err := event.NewEnvelope(event.SourceGateway, event.ValidationRequest{
		ID:          uuid.NewString(),
		Username:    "not ciphertext",
		FullName:    "not ciphertext",
		DateOfBirth: "not ciphertext",
		Address:     "not ciphertext",
		PhoneNumber: "not ciphertext",
	})
	s.Require().NoError(err)

	s.Require().Error(s.svc.Handle(s.ctx, env))
}

func (s *ServiceSuite) TestDeletionRemovesRecord() {
	id := uuid.NewString()
	s.Require().NoError(s.svc.Handle(s.ctx, s.requestEnvelope(id, "2000-01-01")))
	s.Require().NoError(s.svc.Handle(s.ctx, s.deletionEnvelope(id)))

	_, err := s.store.Get(s.ctx, id)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestDeletionOfAbsentIDIsNoOp() {
	s.Require().NoError(s.svc.Handle(s.ctx, s.deletionEnvelope(uuid.NewString())))
}

func (s *ServiceSuite) TestDeletionBeforeRequestWins() {
	// Out-of-order arrival: the deletion lands first, then the request is
	// processed normally. A later redelivered deletion erases it again.
	id := uuid.NewString()
	s.Require().NoError(s.svc.Handle(s.ctx, s.deletionEnvelope(id)))
	s.Require().NoError(s.svc.Handle(s.ctx, s.requestEnvelope(id, "2000-01-01")))
	s.Require().NoError(s.svc.Handle(s.ctx, s.deletionEnvelope(id)))

	_, err := s.store.Get(s.ctx, id)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestRejectsUnexpectedEventType() {
	env, err := event.NewEnvelope(event.SourceValidator, event.ValidationResult{ID: uuid.NewString()})
	s.Require().NoError(err)
	s.Require().Error(s.svc.Handle(s.ctx, env))
}
