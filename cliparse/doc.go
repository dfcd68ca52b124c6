// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p, --port           Server port (default 3318)
	-d, --database-url   Database URL (required)
	-t, --database-type  sqlite or postgres (default sqlite)
	    --catalog        Item catalog YAML file
	    --lock-lease     Scan lock lease (default 60s)
	    --lock-wait      Maximum wait for a scan lock (default 30s)
	    --trend-hours    Trend histogram window (default 720)
	    --max-query-len  Maximum filter query length (default 1000)

# Environment Variables

Flags fall back to environment variables:

	PORT          → -p
	DATABASE_URL  → -d
	DATABASE_TYPE → -t
	CATALOG_PATH  → --catalog
	LOCK_LEASE    → --lock-lease
	LOCK_WAIT     → --lock-wait
	TREND_HOURS   → --trend-hours
	MAX_QUERY_LEN → --max-query-len

CLI flags take precedence over environment variables. A .env file in the
working directory is loaded before parsing; variables already present in
the environment win over the file.

# Validation

ParseFlags returns an error if DATABASE_URL is missing or a numeric or
duration value does not parse.
*/
package cliparse
