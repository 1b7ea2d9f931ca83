//go:build integration

package decision_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civic/internal/decision"
	"civic/pkg/platform/sentinel"
	"civic/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *decision.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = decision.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestPutAndGet() {
	ctx := context.Background()
	rec := makeRecord()
	s.Require().NoError(s.store.Put(ctx, rec))

	got, err := s.store.Get(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.Status, got.Status)
	s.True(rec.Created.Equal(got.Created))
}

func (s *RedisStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), uuid.NewString())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestPutOverwrites() {
	ctx := context.Background()
	rec := makeRecord()
	s.Require().NoError(s.store.Put(ctx, rec))

	rec.Status = decision.StatusFulfilled
	rec.Decision = decision.OutcomeEligible
	rec.Updated = rec.Updated.Add(time.Second)
	s.Require().NoError(s.store.Put(ctx, rec))

	got, err := s.store.Get(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(decision.StatusFulfilled, got.Status)
	s.Equal(decision.OutcomeEligible, got.Decision)
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()
	rec := makeRecord()
	s.Require().NoError(s.store.Put(ctx, rec))
	s.Require().NoError(s.store.Delete(ctx, rec.ID))

	_, err := s.store.Get(ctx, rec.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestDeleteMissingIsNoOp() {
	s.Require().NoError(s.store.Delete(context.Background(), uuid.NewString()))
}
