// Package postgres opens the two connection flavours the service uses: a
// database/sql handle (lib/pq) for the relational stores and a pgx pool for
// the event log.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"guardian/internal/platform/config"
)

// OpenSQL opens and pings a database/sql handle.
func OpenSQL(ctx context.Context, cfg config.Postgres) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxConnLife)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// OpenPool opens a pgx pool sized from the same configuration.
func OpenPool(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	pcfg.MaxConnLifetime = cfg.MaxConnLife
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pgx pool: %w", err)
	}
	return pool, nil
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS event_streams (
		aggregate_type TEXT NOT NULL,
		aggregate_id   UUID NOT NULL,
		version        BIGINT NOT NULL,
		PRIMARY KEY (aggregate_type, aggregate_id)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		global_offset  BIGSERIAL PRIMARY KEY,
		id             UUID NOT NULL UNIQUE,
		aggregate_type TEXT NOT NULL,
		aggregate_id   UUID NOT NULL,
		version        BIGINT NOT NULL,
		event_type     TEXT NOT NULL,
		occurred_at    TIMESTAMPTZ NOT NULL,
		payload        JSONB NOT NULL,
		metadata       JSONB NOT NULL DEFAULT '{}',
		UNIQUE (aggregate_type, aggregate_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS event_relay_checkpoints (
		name        TEXT PRIMARY KEY,
		last_offset BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS consent_records (
		id                  UUID PRIMARY KEY,
		child_id            UUID NOT NULL,
		parent_id           UUID NOT NULL,
		category            TEXT NOT NULL,
		status              TEXT NOT NULL,
		verification_method TEXT NOT NULL DEFAULT '',
		requested_at        TIMESTAMPTZ NOT NULL,
		granted_at          TIMESTAMPTZ,
		expires_at          TIMESTAMPTZ,
		revoked_at          TIMESTAMPTZ,
		denied_at           TIMESTAMPTZ,
		denial_reason       TEXT NOT NULL DEFAULT '',
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS consent_records_child_category ON consent_records (child_id, category)`,
	`CREATE TABLE IF NOT EXISTS relationships (
		id          UUID PRIMARY KEY,
		parent_id   UUID NOT NULL,
		child_id    UUID NOT NULL,
		type        TEXT NOT NULL,
		status      TEXT NOT NULL,
		method      TEXT NOT NULL DEFAULT '',
		reason      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL,
		verified_at TIMESTAMPTZ,
		rejected_at TIMESTAMPTZ,
		UNIQUE (parent_id, child_id)
	)`,
	`CREATE TABLE IF NOT EXISTS data_registrations (
		id                    UUID PRIMARY KEY,
		child_id              UUID NOT NULL,
		subject_id            UUID,
		category              TEXT NOT NULL,
		classification        TEXT NOT NULL,
		collected_at          TIMESTAMPTZ NOT NULL,
		scheduled_deletion_at TIMESTAMPTZ NOT NULL,
		status                TEXT NOT NULL,
		attempts              INT NOT NULL DEFAULT 0,
		last_error            TEXT NOT NULL DEFAULT '',
		deletion_requested_at TIMESTAMPTZ,
		deleted_at            TIMESTAMPTZ,
		escalated_at          TIMESTAMPTZ,
		last_attempt_at       TIMESTAMPTZ
	)`,
	`ALTER TABLE data_registrations ADD COLUMN IF NOT EXISTS last_attempt_at TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS data_registrations_due ON data_registrations (status, scheduled_deletion_at)`,
	`CREATE INDEX IF NOT EXISTS data_registrations_child ON data_registrations (child_id)`,
	`CREATE TABLE IF NOT EXISTS interaction_artifacts (
		child_id       UUID NOT NULL,
		interaction_id UUID NOT NULL,
		category       TEXT NOT NULL,
		content_type   TEXT NOT NULL,
		content        BYTEA NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (child_id, interaction_id, category)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id               UUID PRIMARY KEY,
		category         TEXT NOT NULL,
		timestamp        TIMESTAMPTZ NOT NULL,
		child_id         UUID,
		parent_id        UUID,
		actor            TEXT NOT NULL DEFAULT '',
		action           TEXT NOT NULL,
		consent_category TEXT NOT NULL DEFAULT '',
		decision         TEXT NOT NULL DEFAULT '',
		reason           TEXT NOT NULL DEFAULT '',
		request_id       TEXT NOT NULL DEFAULT '',
		client_ip        TEXT NOT NULL DEFAULT '',
		user_agent       TEXT NOT NULL DEFAULT '',
		severity         TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_child ON audit_events (child_id, timestamp)`,
}
