package db

// schema is applied by Migrate; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	affiliate_url   TEXT NOT NULL,
	status          TEXT NOT NULL,
	published       BOOLEAN NOT NULL DEFAULT FALSE,
	analysis_result JSONB,
	active_job_id   TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_published ON products (published) WHERE published;

CREATE TABLE IF NOT EXISTS analysis_jobs (
	id          TEXT PRIMARY KEY,
	product_id  TEXT NOT NULL,
	status      TEXT NOT NULL,
	provider    TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	stages      JSONB NOT NULL DEFAULT '[]',
	result      JSONB,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_analysis_jobs_product ON analysis_jobs (product_id, started_at DESC);
`
