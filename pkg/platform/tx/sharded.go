package tx

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "guardian/pkg/domain-errors"
)

const numShards = 128

// ShardedRunner serializes units of work per shard key with a fixed set of
// mutexes. It backs the in-memory stores, which apply writes immediately, so
// it provides isolation but not rollback.
type ShardedRunner struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedRunner() *ShardedRunner {
	return &ShardedRunner{}
}

func (r *ShardedRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(heldKey{}).(bool); ok {
		return fn(ctx)
	}
	ctx, cancel, err := bound(ctx, r.timeout)
	defer cancel()
	if err != nil {
		return err
	}

	shard := shardOf(shardKeyFrom(ctx))
	r.shards[shard].Lock()
	defer r.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(context.WithValue(ctx, heldKey{}, true))
}

type heldKey struct{}

func shardOf(key string) uint32 {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numShards
}
