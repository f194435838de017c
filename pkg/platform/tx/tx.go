// Package tx carries a transaction boundary through context so that several
// stores can take part in one unit of work.
package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "guardian/pkg/domain-errors"
)

const defaultTimeout = 5 * time.Second

// Runner executes fn as one unit of work. Stores called with the ctx handed
// to fn join that unit.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ctxKey struct{}
type shardKey struct{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// WithShardKey names the entity a unit of work serializes on. Runners hold
// one lock per key for the duration of the transaction.
func WithShardKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, shardKey{}, key)
}

func shardKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(shardKey{}).(string)
	return key
}

// bound applies the default timeout when the caller set no deadline.
func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}
