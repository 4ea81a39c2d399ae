package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate applies the schema. Statements are idempotent so the service can run
// this unconditionally on startup.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var statements = []string{
	`CREATE TABLE IF NOT EXISTS balances (
    tenant_id    TEXT NOT NULL,
    model        TEXT NOT NULL,
    category     TEXT NOT NULL DEFAULT 'General',
    opening      BIGINT NOT NULL DEFAULT 0,
    ordered      BIGINT NOT NULL DEFAULT 0,
    delivered    BIGINT NOT NULL DEFAULT 0,
    booked       BIGINT NOT NULL DEFAULT 0,
    dispatched   BIGINT NOT NULL DEFAULT 0,
    available    BIGINT,
    last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, model)
)`,

	`CREATE TABLE IF NOT EXISTS order_events (
    id         TEXT PRIMARY KEY,
    tenant_id  TEXT NOT NULL,
    model      TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT '',
    quantity   BIGINT NOT NULL,
    supplier   TEXT NOT NULL DEFAULT '',
    bill_no    TEXT NOT NULL DEFAULT '',
    ordered_by TEXT NOT NULL DEFAULT '',
    event_date TEXT NOT NULL DEFAULT '',
    remarks    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_order_events_tenant_model ON order_events (tenant_id, model)`,
	`CREATE INDEX IF NOT EXISTS idx_order_events_tenant_created ON order_events (tenant_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS receive_events (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    model       TEXT NOT NULL,
    category    TEXT NOT NULL DEFAULT '',
    quantity    BIGINT NOT NULL,
    ordered_qty BIGINT,
    received_by TEXT NOT NULL DEFAULT '',
    event_date  TEXT NOT NULL DEFAULT '',
    remarks     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_receive_events_tenant_model ON receive_events (tenant_id, model)`,
	`CREATE INDEX IF NOT EXISTS idx_receive_events_tenant_created ON receive_events (tenant_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS book_events (
    id            TEXT PRIMARY KEY,
    tenant_id     TEXT NOT NULL,
    model         TEXT NOT NULL,
    category      TEXT NOT NULL DEFAULT '',
    quantity      BIGINT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'Hold',
    customer_name TEXT NOT NULL DEFAULT '',
    booking_id    TEXT NOT NULL DEFAULT '',
    entered_by    TEXT NOT NULL DEFAULT '',
    due_date      TEXT NOT NULL DEFAULT '',
    remarks       TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_book_events_tenant_model ON book_events (tenant_id, model)`,
	`CREATE INDEX IF NOT EXISTS idx_book_events_tenant_created ON book_events (tenant_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS dispatch_events (
    id                TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    model             TEXT NOT NULL,
    category          TEXT NOT NULL DEFAULT '',
    quantity          BIGINT NOT NULL,
    customer_name     TEXT NOT NULL DEFAULT '',
    dispatch_id       TEXT NOT NULL DEFAULT '',
    dispatched_by     TEXT NOT NULL DEFAULT '',
    source            TEXT NOT NULL DEFAULT 'Direct',
    linked_booking_id TEXT,
    event_date        TEXT NOT NULL DEFAULT '',
    remarks           TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_events_tenant_model ON dispatch_events (tenant_id, model)`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_events_tenant_created ON dispatch_events (tenant_id, created_at)`,
}
