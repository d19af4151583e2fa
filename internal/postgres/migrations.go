package postgres

import (
	"context"

	"github.com/example/campsite-bookings/internal/db"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	external_key TEXT NOT NULL,
	group_name TEXT NOT NULL DEFAULT '',
	group_type TEXT NOT NULL DEFAULT '',
	group_size INT NOT NULL,
	leader_name TEXT NOT NULL DEFAULT '',
	leader_phone TEXT NOT NULL DEFAULT '',
	leader_email TEXT NOT NULL DEFAULT '',
	submitted TIMESTAMPTZ NOT NULL,
	arriving TIMESTAMPTZ NOT NULL,
	departing TIMESTAMPTZ NOT NULL,
	facilities TEXT[] NOT NULL,
	cost_estimate BIGINT NOT NULL DEFAULT 0,
	original_source JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	pend_question TEXT NOT NULL DEFAULT '',
	cancel_reason TEXT NOT NULL DEFAULT '',
	bookers_comment TEXT NOT NULL DEFAULT '',
	needs_invoice BOOLEAN NOT NULL DEFAULT FALSE,
	notes TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_external_key ON bookings(external_key);
CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status);
CREATE INDEX IF NOT EXISTS idx_bookings_arriving ON bookings(arriving);

CREATE TABLE IF NOT EXISTS bookings_archive (
	id TEXT PRIMARY KEY,
	external_key TEXT NOT NULL,
	group_name TEXT NOT NULL DEFAULT '',
	group_type TEXT NOT NULL DEFAULT '',
	group_size INT NOT NULL,
	submitted TIMESTAMPTZ NOT NULL,
	arriving TIMESTAMPTZ NOT NULL,
	departing TIMESTAMPTZ NOT NULL,
	facilities TEXT[] NOT NULL,
	cost_estimate BIGINT NOT NULL DEFAULT 0,
	original_source JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	cancel_reason TEXT NOT NULL DEFAULT '',
	bookers_comment TEXT NOT NULL DEFAULT '',
	notes TEXT[] NOT NULL DEFAULT '{}',
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_archive_external_key ON bookings_archive(external_key);

CREATE TABLE IF NOT EXISTS booking_id_seq (
	scope TEXT PRIMARY KEY,
	last_idx INT NOT NULL
);
`

// Migrate applies the idempotent schema. Safe to run on every start.
func Migrate(ctx context.Context, d *db.DB) error {
	return d.Exec(ctx, schemaSQL)
}
