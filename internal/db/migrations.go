package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations is applied in order by Migrate.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_accounts",
		SQL: `
CREATE TABLE IF NOT EXISTS accounts (
    id            BIGSERIAL PRIMARY KEY,
    role          TEXT NOT NULL CHECK (role IN ('owner', 'tenant')),
    owner_id      BIGINT REFERENCES accounts (id) ON DELETE CASCADE,
    tenant_code   TEXT UNIQUE,
    name          TEXT NOT NULL,
    email         TEXT UNIQUE,
    rent_amount   DOUBLE PRECISION NOT NULL DEFAULT 0,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT accounts_role_owner_ref CHECK (
        (role = 'owner' AND owner_id IS NULL AND tenant_code IS NULL) OR
        (role = 'tenant' AND owner_id IS NOT NULL AND tenant_code IS NOT NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts (owner_id);
`,
	},
	{
		Version: 2,
		Name:    "create_meter_readings",
		SQL: `
CREATE TABLE IF NOT EXISTS meter_readings (
    id          BIGSERIAL PRIMARY KEY,
    tenant_id   BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
    meter_type  TEXT NOT NULL CHECK (meter_type IN ('electricity', 'water')),
    value       DOUBLE PRECISION NOT NULL,
    reading_at  TIMESTAMPTZ NOT NULL,
    image_path  TEXT NOT NULL DEFAULT '',
    processed   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_meter_readings_order ON meter_readings (tenant_id, meter_type, reading_at, id);
`,
	},
	{
		Version: 3,
		Name:    "create_rate_records",
		SQL: `
CREATE TABLE IF NOT EXISTS rate_records (
    id             BIGSERIAL PRIMARY KEY,
    owner_id       BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
    meter_type     TEXT NOT NULL CHECK (meter_type IN ('electricity', 'water')),
    rate_per_unit  DOUBLE PRECISION NOT NULL CHECK (rate_per_unit > 0),
    effective_from TIMESTAMPTZ NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rate_records_current ON rate_records (owner_id, meter_type, effective_from DESC, id DESC);
`,
	},
	{
		Version: 4,
		Name:    "create_payments",
		SQL: `
CREATE TABLE IF NOT EXISTS payments (
    id                    BIGSERIAL PRIMARY KEY,
    tenant_id             BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
    amount                DOUBLE PRECISION NOT NULL,
    rent_component        DOUBLE PRECISION NOT NULL,
    electricity_component DOUBLE PRECISION NOT NULL,
    water_component       DOUBLE PRECISION NOT NULL,
    paid_at               TIMESTAMPTZ NOT NULL,
    method                TEXT NOT NULL CHECK (method IN ('card', 'bank_transfer', 'cash')),
    status                TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed', 'rejected')),
    external_reference    TEXT NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments (tenant_id, paid_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS billing_periods (
    id           BIGSERIAL PRIMARY KEY,
    tenant_id    BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
    period_start TIMESTAMPTZ NOT NULL,
    period_end   TIMESTAMPTZ NOT NULL,
    payment_id   BIGINT NOT NULL REFERENCES payments (id) ON DELETE CASCADE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT billing_periods_key UNIQUE (tenant_id, period_start, period_end)
);
`,
	},
	{
		Version: 5,
		Name:    "create_maintenance_requests",
		SQL: `
CREATE TABLE IF NOT EXISTS maintenance_requests (
    id          BIGSERIAL PRIMARY KEY,
    tenant_id   BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
    title       TEXT NOT NULL,
    description TEXT NOT NULL,
    priority    TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
    status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'completed', 'closed')),
    owner_notes TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_maintenance_tenant ON maintenance_requests (tenant_id, created_at DESC);
`,
	},
	{
		Version: 6,
		Name:    "create_password_reset_codes",
		SQL: `
CREATE TABLE IF NOT EXISTS password_reset_codes (
    id         BIGSERIAL PRIMARY KEY,
    account_id BIGINT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
    email      TEXT NOT NULL,
    code       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    used       BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_reset_codes_email ON password_reset_codes (email, used, created_at DESC);
`,
	},
	{
		Version: 7,
		Name:    "add_reset_code_attempts",
		SQL: `
ALTER TABLE password_reset_codes ADD COLUMN IF NOT EXISTS attempts INT NOT NULL DEFAULT 0;
`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction together with its version row.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("[DATABASE] failed to create schema_migrations: %w", err)
	}

	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("[DATABASE] failed to read schema version: %w", err)
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(ctx, pool, m); err != nil {
			return err
		}
		logger.Info("applied migration", zap.Int("version", m.Version), zap.String("name", m.Name))
	}

	return nil
}

func apply(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("[DATABASE] migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
			return fmt.Errorf("[DATABASE] failed to record migration %d: %w", m.Version, err)
		}
		return nil
	})
}
