package database

import (
	"context"
	"fmt"
	"time"
)

// schemaStatements creates the tables read and written by this service.
// Tags, posts and tag counts are populated by the import pipeline.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tag (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tag_count (
		id BIGSERIAL PRIMARY KEY,
		tag_id BIGINT NOT NULL REFERENCES tag(id) ON DELETE CASCADE,
		count BIGINT NOT NULL,
		count_date TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tag_count_tag_date ON tag_count (tag_id, count_date DESC)`,
	`CREATE TABLE IF NOT EXISTS post (
		id BIGINT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS post_tag (
		post_id BIGINT NOT NULL REFERENCES post(id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tag(id) ON DELETE CASCADE,
		PRIMARY KEY (post_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_post_tag_tag ON post_tag (tag_id)`,
	`CREATE TABLE IF NOT EXISTS tag_affinity (
		tag_a BIGINT NOT NULL,
		tag_b BIGINT NOT NULL,
		score NUMERIC(6,5) NOT NULL,
		PRIMARY KEY (tag_a, tag_b),
		CHECK (tag_a < tag_b)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tag_affinity_b ON tag_affinity (tag_b)`,
	`CREATE TABLE IF NOT EXISTS category (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS category_tag (
		category_id BIGINT NOT NULL REFERENCES category(id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tag(id) ON DELETE CASCADE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (category_id, tag_id)
	)`,
}

// EnsureSchema creates missing tables and indexes
func (db *DB) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
