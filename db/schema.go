// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, d Dialect) error {
	ddl := strings.ReplaceAll(schema, "{{blob}}", d.blobType())
	_, err := db.Exec(ddl)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Ballots, written by the intake service
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    vote_year INTEGER NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_year ON vote(vote_year);

-- Queryable ballot attributes, one row per (field, value)
CREATE TABLE IF NOT EXISTS vote_attr (
    vote_id TEXT NOT NULL REFERENCES vote(id) ON DELETE CASCADE,
    field TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (vote_id, field, value)
);

CREATE INDEX IF NOT EXISTS idx_vote_attr_field_value ON vote_attr(field, value);

-- Ranking entries, one row per rank
CREATE TABLE IF NOT EXISTS ranking_entry_cache (
    op TEXT NOT NULL,
    cache_key TEXT NOT NULL,
    vote_year INTEGER NOT NULL,
    rank INTEGER NOT NULL,
    name TEXT NOT NULL,
    payload {{blob}} NOT NULL,
    PRIMARY KEY (op, cache_key, vote_year, rank)
);

CREATE INDEX IF NOT EXISTS idx_ranking_entry_cache_name ON ranking_entry_cache(op, cache_key, vote_year, name);

-- Ranking globals and completion rates
CREATE TABLE IF NOT EXISTS global_cache (
    op TEXT NOT NULL,
    cache_key TEXT NOT NULL,
    vote_year INTEGER NOT NULL,
    payload {{blob}} NOT NULL,
    PRIMARY KEY (op, cache_key, vote_year)
);

-- Covote tables, one row per top-K size
CREATE TABLE IF NOT EXISTS covote_cache (
    op TEXT NOT NULL,
    cache_key TEXT NOT NULL,
    vote_year INTEGER NOT NULL,
    first_k INTEGER NOT NULL,
    payload {{blob}} NOT NULL,
    PRIMARY KEY (op, cache_key, vote_year, first_k)
);

-- Questionnaire tabulations, one row per question
CREATE TABLE IF NOT EXISTS question_cache (
    cache_key TEXT NOT NULL,
    vote_year INTEGER NOT NULL,
    question_id TEXT NOT NULL,
    payload {{blob}} NOT NULL,
    PRIMARY KEY (cache_key, vote_year, question_id)
);

-- Scan leases
CREATE TABLE IF NOT EXISTS query_lock (
    name TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    expires_at BIGINT NOT NULL
);
`
