package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"guardian/internal/eventlog/models"
	"guardian/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// offsetLockKey serializes only the offset-assigning insert so that global
// offsets become visible in commit order for catch-up readers.
const offsetLockKey int64 = 0x6775617264

// Store persists events in Postgres. The event_streams row carries the head
// version and is the optimistic concurrency guard; UNIQUE(aggregate, version)
// on events is the backstop.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, key models.StreamKey, expectedVersion int64, events []models.Event) ([]models.Event, error) {
	newVersion := expectedVersion + int64(len(events))
	var committed []models.Event

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var tag pgconn.CommandTag
		var err error
		if expectedVersion == 0 {
			tag, err = tx.Exec(ctx, `
				INSERT INTO event_streams (aggregate_type, aggregate_id, version)
				VALUES ($1, $2, $3)
				ON CONFLICT (aggregate_type, aggregate_id) DO NOTHING`,
				key.AggregateType, key.AggregateID, newVersion)
		} else {
			tag, err = tx.Exec(ctx, `
				UPDATE event_streams SET version = $4
				WHERE aggregate_type = $1 AND aggregate_id = $2 AND version = $3`,
				key.AggregateType, key.AggregateID, expectedVersion, newVersion)
		}
		if err != nil {
			return fmt.Errorf("advance stream head: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return sentinel.ErrConflict
		}

		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, offsetLockKey); err != nil {
			return fmt.Errorf("acquire offset lock: %w", err)
		}

		batch := &pgx.Batch{}
		committed = make([]models.Event, len(events))
		for i, e := range events {
			e.AggregateType = key.AggregateType
			e.AggregateID = key.AggregateID
			e.Version = expectedVersion + int64(i) + 1
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			md, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			committed[i] = e
			batch.Queue(`
				INSERT INTO events (id, aggregate_type, aggregate_id, version, event_type, occurred_at, payload, metadata)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING global_offset`,
				e.ID, e.AggregateType, e.AggregateID, e.Version, e.Type, e.OccurredAt, []byte(e.Payload), md,
			)
		}
		results := tx.SendBatch(ctx, batch)
		for i := range committed {
			if err := results.QueryRow().Scan(&committed[i].Offset); err != nil {
				_ = results.Close()
				return err
			}
		}
		return results.Close()
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, sentinel.ErrConflict
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("append events: %w", err)
	}
	return committed, nil
}

const selectColumns = `global_offset, id, aggregate_type, aggregate_id, version, event_type, occurred_at, payload, metadata`

func (s *Store) Load(ctx context.Context, key models.StreamKey, fromVersion int64) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM events
		WHERE aggregate_type = $1 AND aggregate_id = $2 AND version > $3
		ORDER BY version`,
		key.AggregateType, key.AggregateID, fromVersion)
	if err != nil {
		return nil, fmt.Errorf("load stream: %w", err)
	}
	return collect(rows)
}

func (s *Store) LoadFromOffset(ctx context.Context, offset int64, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM events
		WHERE global_offset > $1
		ORDER BY global_offset
		LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("load from offset: %w", err)
	}
	return collect(rows)
}

func (s *Store) Version(ctx context.Context, key models.StreamKey) (int64, error) {
	var v int64
	err := s.pool.QueryRow(ctx, `
		SELECT version FROM event_streams WHERE aggregate_type = $1 AND aggregate_id = $2`,
		key.AggregateType, key.AggregateID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stream version: %w", err)
	}
	return v, nil
}

func collect(rows pgx.Rows) ([]models.Event, error) {
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Event, error) {
		var (
			e       models.Event
			payload []byte
			md      []byte
		)
		if err := row.Scan(&e.Offset, &e.ID, &e.AggregateType, &e.AggregateID, &e.Version, &e.Type, &e.OccurredAt, &payload, &md); err != nil {
			return models.Event{}, err
		}
		e.Payload = payload
		if len(md) > 0 {
			if err := json.Unmarshal(md, &e.Metadata); err != nil {
				return models.Event{}, fmt.Errorf("decode metadata: %w", err)
			}
		}
		e.OccurredAt = e.OccurredAt.UTC()
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}

// Checkpoints persists relay progress in event_relay_checkpoints.
type Checkpoints struct {
	pool *pgxpool.Pool
}

func NewCheckpoints(pool *pgxpool.Pool) *Checkpoints {
	return &Checkpoints{pool: pool}
}

func (c *Checkpoints) Load(ctx context.Context, name string) (int64, error) {
	var off int64
	err := c.pool.QueryRow(ctx, `SELECT last_offset FROM event_relay_checkpoints WHERE name = $1`, name).Scan(&off)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	return off, nil
}

func (c *Checkpoints) Save(ctx context.Context, name string, offset int64) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO event_relay_checkpoints (name, last_offset) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET last_offset = GREATEST(event_relay_checkpoints.last_offset, EXCLUDED.last_offset)`,
		name, offset)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
