package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the recur store.
var Migrations = migrate.NewGroup("recur")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_recur_offerings",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE SEQUENCE IF NOT EXISTS recur_offering_id_seq START WITH 1;

CREATE TABLE IF NOT EXISTS recur_offerings (
    id                   BIGINT PRIMARY KEY,
    service_id           TEXT NOT NULL,
    owner                TEXT NOT NULL,
    recipient            TEXT NOT NULL,
    amount_per_period    BIGINT NOT NULL,
    period_seconds       BIGINT NOT NULL,
    active               BOOLEAN NOT NULL DEFAULT TRUE,
    subscriber_count     BIGINT NOT NULL DEFAULT 0,
    lifetime_subscribers BIGINT NOT NULL DEFAULT 0,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_recur_offerings_owner ON recur_offerings (owner, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS recur_offerings;
DROP SEQUENCE IF EXISTS recur_offering_id_seq;
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
    offering_id         BIGINT NOT NULL REFERENCES recur_offerings (id),
    subscriber          TEXT NOT NULL,
    start_time          TIMESTAMPTZ NOT NULL,
    last_charge_time    TIMESTAMPTZ NOT NULL,
    active              BOOLEAN NOT NULL DEFAULT TRUE,
    total_paid          BIGINT NOT NULL DEFAULT 0,
    charge_count        BIGINT NOT NULL DEFAULT 0,
    target_charge_time  TIMESTAMPTZ,
    first_subscribed_at TIMESTAMPTZ NOT NULL,
    canceled_at         TIMESTAMPTZ,
    position            BIGINT NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    offering_id BIGINT NOT NULL,
    subscriber  TEXT NOT NULL,
    recipient   TEXT NOT NULL,
    amount      BIGINT NOT NULL,
    sequence    BIGINT NOT NULL,
    due_at      TIMESTAMPTZ NOT NULL,
    charged_at  TIMESTAMPTZ NOT NULL,
    batch_id    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_recur_charges_offering ON recur_charges (offering_id, charged_at DESC);
CREATE INDEX IF NOT EXISTS idx_recur_charges_subscriber ON recur_charges (subscriber, charged_at DESC);
CREATE INDEX IF NOT EXISTS idx_recur_charges_batch ON recur_charges (batch_id) WHERE batch_id != '';
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
