package lock_repo

import (
	"colorgame_backend/internal/model"
	"colorgame_backend/internal/repository"
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

const testKey = "settlement:round:test"

type SettlementLockTestSuite struct {
	suite.Suite
	rdb  *redis.Client
	lock repository.SettlementLock
}

func (s *SettlementLockTestSuite) SetupSuite() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s.rdb = redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := s.rdb.Ping(context.Background()).Err(); err != nil {
		s.T().Skip("Redis not available, skipping integration tests")
	}
	s.lock = NewSettlementLock(s.rdb)
}

func (s *SettlementLockTestSuite) TearDownSuite() {
	if s.rdb != nil {
		s.NoError(s.rdb.Close())
	}
}

func (s *SettlementLockTestSuite) SetupTest() {
	s.rdb.Del(context.Background(), keyPrefix+testKey)
}

func (s *SettlementLockTestSuite) TestAcquireRelease() {
	ctx := context.Background()

	release, err := s.lock.Acquire(ctx, testKey, time.Minute)
	s.Require().NoError(err)

	_, err = s.lock.Acquire(ctx, testKey, time.Minute)
	s.ErrorIs(err, model.ErrSettlementInProgress)

	release()
	release, err = s.lock.Acquire(ctx, testKey, time.Minute)
	s.Require().NoError(err)
	release()
}

func (s *SettlementLockTestSuite) TestLeaseRenewedWhileHeld() {
	ctx := context.Background()

	release, err := s.lock.Acquire(ctx, testKey, 150*time.Millisecond)
	s.Require().NoError(err)

	time.Sleep(500 * time.Millisecond)
	_, err = s.lock.Acquire(ctx, testKey, time.Minute)
	s.ErrorIs(err, model.ErrSettlementInProgress)

	release()
	n, err := s.rdb.Exists(ctx, keyPrefix+testKey).Result()
	s.NoError(err)
	s.Zero(n)
}

func (s *SettlementLockTestSuite) TestLostLeaseNotReleasedByOldOwner() {
	ctx := context.Background()

	stale, err := s.lock.Acquire(ctx, testKey, time.Minute)
	s.Require().NoError(err)

	// ключ перехвачен другим владельцем
	s.Require().NoError(s.rdb.Set(ctx, keyPrefix+testKey, "other-owner", time.Minute).Err())

	stale()
	val, err := s.rdb.Get(ctx, keyPrefix+testKey).Result()
	s.NoError(err)
	s.Equal("other-owner", val)
}

func TestSettlementLockTestSuite(t *testing.T) {
	suite.Run(t, new(SettlementLockTestSuite))
}
