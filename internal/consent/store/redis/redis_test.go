package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"guardian/internal/consent/models"
	"guardian/pkg/platform/sentinel"
)

type RedisStoreSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *goredis.Client
	ctx    context.Context
	now    time.Time
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	s.client = goredis.NewClient(&goredis.Options{Addr: s.mr.Addr()})
	s.ctx = context.Background()
	s.now = time.Now()
}

func (s *RedisStoreSuite) TearDownTest() {
	_ = s.client.Close()
}

func (s *RedisStoreSuite) code(subject uuid.UUID) models.VerificationCode {
	return models.VerificationCode{
		SubjectID:   subject,
		Purpose:     models.PurposeConsent,
		Hash:        []byte("hash"),
		Channel:     models.MethodEmail,
		IssuedAt:    s.now,
		ExpiresAt:   s.now.Add(15 * time.Minute),
		MaxAttempts: 3,
	}
}

func accept(models.VerificationCode) error { return nil }
func reject(models.VerificationCode) error { return errors.New("wrong") }

func (s *RedisStoreSuite) TestConsumeIsSingleUse() {
	store := NewCodeStore(s.client)
	subject := uuid.New()
	s.Require().NoError(store.Save(s.ctx, s.code(subject)))

	_, err := store.Consume(s.ctx, subject, models.PurposeConsent, s.now, accept)
	s.Require().NoError(err)

	_, err = store.Consume(s.ctx, subject, models.PurposeConsent, s.now, accept)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestWrongCodeCountsAttemptsThenBurns() {
	store := NewCodeStore(s.client)
	subject := uuid.New()
	s.Require().NoError(store.Save(s.ctx, s.code(subject)))

	for want := 1; want <= 3; want++ {
		c, err := store.Consume(s.ctx, subject, models.PurposeConsent, s.now, reject)
		s.ErrorIs(err, sentinel.ErrMismatch)
		s.Equal(want, c.Attempts)
	}
	s.False(s.mr.Exists(codeKey(subject)), "exhausted code is removed")
}

func (s *RedisStoreSuite) TestExpiredCode() {
	store := NewCodeStore(s.client)
	subject := uuid.New()
	s.Require().NoError(store.Save(s.ctx, s.code(subject)))

	_, err := store.Consume(s.ctx, subject, models.PurposeConsent, s.now.Add(time.Hour), accept)
	s.ErrorIs(err, sentinel.ErrExpired)
}

func (s *RedisStoreSuite) TestPurposeMismatchIsNotFound() {
	store := NewCodeStore(s.client)
	subject := uuid.New()
	s.Require().NoError(store.Save(s.ctx, s.code(subject)))

	_, err := store.Consume(s.ctx, subject, models.PurposeRelationship, s.now, accept)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestConcurrentConsumeAcceptsOnce() {
	store := NewCodeStore(s.client)
	subject := uuid.New()
	s.Require().NoError(store.Save(s.ctx, s.code(subject)))

	var (
		ok atomic.Int32
		wg sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(s.ctx, subject, models.PurposeConsent, s.now, accept); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), ok.Load())
}

func (s *RedisStoreSuite) TestWindowLimiter() {
	l := NewWindowLimiter(s.client)
	for i := range 3 {
		res, err := l.Allow(s.ctx, "parent:email", 3, 15*time.Minute, s.now.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}
	res, err := l.Allow(s.ctx, "parent:email", 3, 15*time.Minute, s.now.Add(5*time.Second))
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.WithinDuration(s.now.Add(15*time.Minute), res.ResetAt, time.Millisecond)

	res, err = l.Allow(s.ctx, "parent:email", 3, 15*time.Minute, s.now.Add(15*time.Minute+500*time.Millisecond))
	s.Require().NoError(err)
	s.True(res.Allowed, "oldest attempt left the window")
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewWindowLimiter(client)
	now := time.Now()
	res, err := l.Allow(context.Background(), "a", 1, time.Minute, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	res, err = l.Allow(context.Background(), "b", 1, time.Minute, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
