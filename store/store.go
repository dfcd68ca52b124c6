// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store streams ballots out of the vote table.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/db"
	"github.com/PatchyVideo/thvote-be/filter"
	"github.com/PatchyVideo/thvote-be/models"
)

// Store is the read side of the ballot log.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	scans   atomic.Int64
}

func New(conn *sql.DB, d db.Dialect) *Store {
	return &Store{db: conn, dialect: d}
}

// Scans reports how many ballot scans have been started.
func (s *Store) Scans() int64 {
	return s.scans.Load()
}

// Ballots returns a single-use sequence of the ballots of year matching f,
// ordered by id. A nil filter matches every ballot of the year. Iteration
// stops at the first error, which is yielded with a nil ballot; the
// context is checked between rows.
func (s *Store) Ballots(ctx context.Context, f *filter.Node, year int) iter.Seq2[*models.Ballot, error] {
	return func(yield func(*models.Ballot, error) bool) {
		s.scans.Add(1)

		args := &filter.Args{}
		query := "SELECT id, payload FROM vote WHERE vote_year = " + args.Add(year)
		if f != nil {
			query += " AND " + f.SQL(args)
		}
		query += " ORDER BY id"

		rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args.Values...)
		if err != nil {
			yield(nil, apperr.Upstream(fmt.Errorf("query ballots: %w", err)))
			return
		}
		defer rows.Close()

		for rows.Next() {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			var id, payload string
			if err := rows.Scan(&id, &payload); err != nil {
				yield(nil, apperr.Upstream(fmt.Errorf("scan ballot: %w", err)))
				return
			}
			var b models.Ballot
			if err := json.Unmarshal([]byte(payload), &b); err != nil {
				yield(nil, apperr.Upstream(fmt.Errorf("decode ballot %s: %w", id, err)))
				return
			}
			b.VoteID = id
			b.VoteYear = year
			if !yield(&b, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, apperr.Upstream(fmt.Errorf("iterate ballots: %w", err)))
		}
	}
}
