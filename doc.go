// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the thvote result query server.

The server answers ranking and statistics queries over the ballots of the
Touhou popularity poll: character, music and pairing rankings, hourly
trends, co-vote tables and questionnaire tabulations, each for an
arbitrary ballot filter. Every distinct result is computed by one full
scan at most and served from the result cache afterwards.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... DATABASE_TYPE=postgres go run .

Or with flags:

	go run . -p 3318 -t sqlite -d "file:votes.db"

A .env file in the working directory is loaded first when present.

# Configuration

Required settings:

  - DATABASE_URL (-d): database connection string

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): postgres or sqlite (default: sqlite)
  - CATALOG_PATH (--catalog): YAML item catalog
  - LOCK_LEASE (--lock-lease): scan lock lease (default: 60s)
  - LOCK_WAIT (--lock-wait): how long to wait for a scan lock (default: 30s)
  - TREND_HOURS (--trend-hours): histogram window (default: 720)
  - MAX_QUERY_LEN (--max-query-len): filter length limit (default: 1000)

# Architecture

  - filter: query DSL compiler, cache keys and SQL predicates
  - store: streaming ballot reader
  - aggregate, rank, covote: single-pass statistics
  - cache: write-once result cache and the cross-process scan lock
  - engine: cache-aside orchestration of all operations
  - handlers, router, middleware: HTTP surface
  - catalog, metrics, db, cliparse, models, apperr: supporting packages

See package documentation for each component.
*/
package main
