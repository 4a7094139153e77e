// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL bootstraps every table the harvester owns. The link table
// doubles as the crawl queue; its integer status values are defined by
// harvest.Status and must stay in sync.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS found_links (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	href TEXT UNIQUE NOT NULL,
	status INT NOT NULL DEFAULT 0,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_found_links_status ON found_links (status);
CREATE INDEX IF NOT EXISTS idx_found_links_unprocessed
	ON found_links (created_at) WHERE processed_at IS NULL;

CREATE TABLE IF NOT EXISTS articles (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	old_id BIGINT UNIQUE,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	link TEXT UNIQUE NOT NULL,
	images TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tags (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	slug TEXT UNIQUE NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS categories (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	description TEXT
);

CREATE TABLE IF NOT EXISTS article_tags (
	article_id BIGINT NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
	tag_id BIGINT NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
	PRIMARY KEY (article_id, tag_id)
);

CREATE TABLE IF NOT EXISTS article_categories (
	article_id BIGINT NOT NULL REFERENCES articles (id) ON DELETE CASCADE,
	category_id BIGINT NOT NULL REFERENCES categories (id) ON DELETE CASCADE,
	PRIMARY KEY (article_id, category_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	old_id BIGINT,
	author TEXT NOT NULL,
	content TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	article_id BIGINT NOT NULL REFERENCES articles (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_comments_article ON comments (article_id);
`

// Connect builds a pgx connection pool from a DSN.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the harvester tables when they do not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
