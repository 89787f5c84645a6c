package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is the subset of pgxpool.Pool used by Migrate.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

// migrations are idempotent and applied in order on every start.
var migrations = []migration{
	{
		name: "user_approvals",
		sql: `
			CREATE TABLE IF NOT EXISTS user_approvals (
				principal TEXT PRIMARY KEY,
				status VARCHAR(16) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				decided_by TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_user_approvals_status ON user_approvals(status, updated_at DESC);
		`,
	},
	{
		name: "user_profiles",
		sql: `
			CREATE TABLE IF NOT EXISTS user_profiles (
				principal TEXT PRIMARY KEY,
				name VARCHAR(64) NOT NULL,
				age INT NOT NULL,
				parent_principal TEXT NOT NULL,
				approved_contacts TEXT[] NOT NULL DEFAULT '{}',
				screen_time_limit INT NOT NULL,
				content_filter VARCHAR(16) NOT NULL,
				avatar JSONB NOT NULL DEFAULT '{}',
				accessibility JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		name: "virtual_pets",
		sql: `
			CREATE TABLE IF NOT EXISTS virtual_pets (
				principal TEXT PRIMARY KEY,
				name VARCHAR(64) NOT NULL,
				happiness INT NOT NULL DEFAULT 50,
				growth_stage VARCHAR(16) NOT NULL DEFAULT 'baby',
				accessories TEXT[] NOT NULL DEFAULT '{}',
				decorations TEXT[] NOT NULL DEFAULT '{}',
				home_style VARCHAR(32) NOT NULL DEFAULT 'cozy',
				warned_extreme_changes BOOLEAN NOT NULL DEFAULT FALSE,
				trophies BIGINT NOT NULL CHECK (trophies >= 0),
				last_welcome_back BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_virtual_pets_trophies ON virtual_pets(trophies DESC);
		`,
	},
	{
		name: "trophy_ledger",
		sql: `
			CREATE TABLE IF NOT EXISTS trophy_ledger (
				id BIGSERIAL PRIMARY KEY,
				principal TEXT NOT NULL,
				amount BIGINT NOT NULL,
				type VARCHAR(32) NOT NULL,
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_trophy_ledger_principal ON trophy_ledger(principal, created_at DESC);
		`,
	},
	{
		name: "activity_events",
		sql: `
			CREATE TABLE IF NOT EXISTS activity_events (
				id BIGSERIAL PRIMARY KEY,
				type VARCHAR(32) NOT NULL,
				game_id TEXT NOT NULL DEFAULT '',
				game_name TEXT NOT NULL DEFAULT '',
				principal TEXT NOT NULL,
				timestamp BIGINT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_activity_events_principal ON activity_events(principal, id DESC);
		`,
	},
	{
		name: "spin_records",
		sql: `
			CREATE TABLE IF NOT EXISTS spin_records (
				id UUID PRIMARY KEY,
				principal TEXT NOT NULL,
				reward_type VARCHAR(32) NOT NULL,
				value BIGINT NOT NULL,
				label TEXT NOT NULL DEFAULT '',
				extra_spin BOOLEAN NOT NULL,
				timestamp BIGINT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_spin_records_principal ON spin_records(principal, timestamp DESC);
		`,
	},
	{
		name: "badge_proofs",
		sql: `
			CREATE TABLE IF NOT EXISTS badge_proofs (
				principal TEXT NOT NULL,
				badge_id VARCHAR(64) NOT NULL,
				timestamp BIGINT NOT NULL,
				PRIMARY KEY (principal, badge_id)
			);
		`,
	},
	{
		name: "game_states",
		sql: `
			CREATE TABLE IF NOT EXISTS game_states (
				principal TEXT NOT NULL,
				game_id VARCHAR(128) NOT NULL,
				game_name TEXT NOT NULL,
				state JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (principal, game_id)
			);
		`,
	},
}

// Migrate creates the schema.
func Migrate(ctx context.Context, db Execer) error {
	log.Info().Msg("Running database migrations...")
	for i, m := range migrations {
		if _, err := db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}
	log.Info().Msg("All migrations completed successfully")
	return nil
}
