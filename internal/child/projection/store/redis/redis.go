// Package redis keeps child summaries in Redis so every instance serves the
// same parent directory.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"guardian/internal/child/projection"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
)

const (
	summaryKeyPrefix = "guardian:child:summary:"
	parentKeyPrefix  = "guardian:parent:children:"
	maxWatchRetries  = 5
)

type Store struct {
	client goredis.UniversalClient
}

func New(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func summaryKey(childID id.ChildID) string  { return summaryKeyPrefix + childID.String() }
func parentKey(parentID id.ParentID) string { return parentKeyPrefix + parentID.String() }

func (s *Store) Get(ctx context.Context, childID id.ChildID) (*projection.Summary, error) {
	raw, err := s.client.Get(ctx, summaryKey(childID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("child summary %s: %w", childID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get child summary: %w", err)
	}
	return decode(raw)
}

// Put writes the summary under WATCH and leaves a newer stored version alone.
func (s *Store) Put(ctx context.Context, sum *projection.Summary) error {
	raw, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode child summary: %w", err)
	}
	key := summaryKey(sum.ChildID)
	txf := func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			stored, err := decode(cur)
			if err != nil {
				return err
			}
			if stored.Version >= sum.Version {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			pipe.SAdd(ctx, parentKey(sum.ParentID), sum.ChildID.String())
			return nil
		})
		return err
	}
	for range maxWatchRetries {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("save child summary: %w", err)
	}
	return nil
}

func (s *Store) ListByParent(ctx context.Context, parentID id.ParentID) ([]*projection.Summary, error) {
	members, err := s.client.SMembers(ctx, parentKey(parentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list parent children: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, summaryKeyPrefix+m)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load child summaries: %w", err)
	}
	out := make([]*projection.Summary, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		sum, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func decode(raw []byte) (*projection.Summary, error) {
	var sum projection.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil, fmt.Errorf("decode child summary: %w", err)
	}
	return &sum, nil
}
