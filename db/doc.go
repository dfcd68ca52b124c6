// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections and schema creation.

# Dialects

Postgres (lib/pq) runs in production; SQLite (modernc.org/sqlite) serves
development and tests. Queries are written with $N placeholders and passed
through Dialect.Rebind before execution.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn, db.Postgres); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - vote: ballot documents (JSON), one per voter and year
  - vote_attr: queryable (field, value) pairs per ballot
  - ranking_entry_cache: cached ranking entries by rank
  - global_cache: cached ranking globals and completion rates
  - covote_cache: cached covote tables by top-K size
  - question_cache: cached questionnaire tabulations by question
  - query_lock: scan leases

Cache rows are write-once. Nothing in this service updates or deletes them.

# Relationships

	vote 1──* vote_attr
*/
package db
