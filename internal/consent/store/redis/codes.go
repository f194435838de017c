// Package redis stores verification codes and channel rate-limit windows in
// Redis so several service instances share them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"guardian/internal/consent/models"
	"guardian/pkg/platform/sentinel"
)

const (
	codeKeyPrefix   = "guardian:vcode:"
	maxWatchRetries = 5
)

// CodeStore keeps one code per subject under a key that expires with the
// code. Consume runs under WATCH so concurrent checks of the same code see
// at most one success.
type CodeStore struct {
	client goredis.UniversalClient
}

func NewCodeStore(client goredis.UniversalClient) *CodeStore {
	return &CodeStore{client: client}
}

func codeKey(subject uuid.UUID) string {
	return codeKeyPrefix + subject.String()
}

func (s *CodeStore) Save(ctx context.Context, c models.VerificationCode) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode verification code: %w", err)
	}
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, codeKey(c.SubjectID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save verification code: %w", err)
	}
	return nil
}

func (s *CodeStore) Delete(ctx context.Context, subject uuid.UUID) error {
	if err := s.client.Del(ctx, codeKey(subject)).Err(); err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}

func (s *CodeStore) Consume(ctx context.Context, subject uuid.UUID, purpose models.Purpose, now time.Time, verify func(models.VerificationCode) error) (models.VerificationCode, error) {
	key := codeKey(subject)
	var (
		result    models.VerificationCode
		resultErr error
	)
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			resultErr = fmt.Errorf("verification code: %w", sentinel.ErrNotFound)
			return nil
		}
		if err != nil {
			return err
		}
		var c models.VerificationCode
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("decode verification code: %w", err)
		}
		if c.Purpose != purpose {
			resultErr = fmt.Errorf("verification code: %w", sentinel.ErrNotFound)
			return nil
		}
		result = c

		if c.Expired(now) {
			resultErr = fmt.Errorf("verification code: %w", sentinel.ErrExpired)
			_, err := tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
				p.Del(ctx, key)
				return nil
			})
			return err
		}
		if verr := verify(c); verr != nil {
			c.Attempts++
			result = c
			resultErr = fmt.Errorf("verification code: %w", sentinel.ErrMismatch)
			updated, err := json.Marshal(c)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
				if c.Exhausted() {
					p.Del(ctx, key)
				} else {
					p.SetArgs(ctx, key, updated, goredis.SetArgs{KeepTTL: true})
				}
				return nil
			})
			return err
		}
		resultErr = nil
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}

	for range maxWatchRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return models.VerificationCode{}, fmt.Errorf("consume verification code: %w", err)
		}
		return result, resultErr
	}
	return models.VerificationCode{}, fmt.Errorf("consume verification code: contention: %w", sentinel.ErrUnavailable)
}
