package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the recur store (SQLite).
var Migrations = migrate.NewGroup("recur")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_recur_offerings",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_counters (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO recur_counters (name, value) VALUES ('offering', 0);

CREATE TABLE IF NOT EXISTS recur_offerings (
    id                   INTEGER PRIMARY KEY,
    service_id           TEXT NOT NULL,
    owner                TEXT NOT NULL,
    recipient            TEXT NOT NULL,
    amount_per_period    INTEGER NOT NULL,
    period_seconds       INTEGER NOT NULL,
    active               INTEGER NOT NULL DEFAULT 1,
    subscriber_count     INTEGER NOT NULL DEFAULT 0,
    lifetime_subscribers INTEGER NOT NULL DEFAULT 0,
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_recur_offerings_owner ON recur_offerings (owner, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS recur_offerings;
DROP TABLE IF EXISTS recur_counters;
`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_subscriptions",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_subscriptions (
    id                  TEXT PRIMARY KEY,
    offering_id         INTEGER NOT NULL REFERENCES recur_offerings (id),
    subscriber          TEXT NOT NULL,
    start_time          TEXT NOT NULL,
    last_charge_time    TEXT NOT NULL,
    active              INTEGER NOT NULL DEFAULT 1,
    total_paid          INTEGER NOT NULL DEFAULT 0,
    charge_count        INTEGER NOT NULL DEFAULT 0,
    target_charge_time  TEXT,
    first_subscribed_at TEXT NOT NULL,
    canceled_at         TEXT,
    position            INTEGER NOT NULL,
    updated_at          TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_recur_subs_pair ON recur_subscriptions (offering_id, subscriber);
CREATE UNIQUE INDEX IF NOT EXISTS idx_recur_subs_position ON recur_subscriptions (offering_id, position);
CREATE INDEX IF NOT EXISTS idx_recur_subs_subscriber ON recur_subscriptions (subscriber, first_subscribed_at, offering_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_recur_charges",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recur_charges (
    id          TEXT PRIMARY KEY,
    offering_id INTEGER NOT NULL,
    subscriber  TEXT NOT NULL,
    recipient   TEXT NOT NULL,
    amount      INTEGER NOT NULL,
    sequence    INTEGER NOT NULL,
    due_at      TEXT NOT NULL,
    charged_at  TEXT NOT NULL,
    batch_id    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_recur_charges_offering ON recur_charges (offering_id, charged_at);
CREATE INDEX IF NOT EXISTS idx_recur_charges_subscriber ON recur_charges (subscriber, charged_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS recur_charges`)
				return err
			},
		},
	)
}
