// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/db"
	"github.com/PatchyVideo/thvote-be/filter"
	"github.com/PatchyVideo/thvote-be/models"
)

// Store persists computed results. Rows are inserted once and never
// updated; a second writer for the same key is silently ignored.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewStore(conn *sql.DB, d db.Dialect) *Store {
	return &Store{db: conn, dialect: d}
}

// Row is one ranking entry to cache.
type Row struct {
	Rank  int
	Name  string
	Entry any
}

func (s *Store) q(query string) string { return s.dialect.Rebind(query) }

// PutRanking stores the entries and the global summary of a ranking in one
// transaction. The global row marks the ranking as complete.
func (s *Store) PutRanking(ctx context.Context, op string, key filter.Key, year int, rows []Row, global any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Upstream(fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.q(`
		INSERT INTO ranking_entry_cache (op, cache_key, vote_year, rank, name, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`))
	if err != nil {
		return apperr.Upstream(fmt.Errorf("prepare entry insert: %w", err))
	}
	defer stmt.Close()

	size := 0
	for _, r := range rows {
		payload, err := encode(r.Entry)
		if err != nil {
			return err
		}
		size += len(payload)
		if _, err := stmt.ExecContext(ctx, op, key.Digest, year, r.Rank, r.Name, payload); err != nil {
			return apperr.Upstream(fmt.Errorf("insert entry: %w", err))
		}
	}

	payload, err := encode(global)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO global_cache (op, cache_key, vote_year, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`), op, key.Digest, year, payload); err != nil {
		return apperr.Upstream(fmt.Errorf("insert global: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return apperr.Upstream(fmt.Errorf("commit: %w", err))
	}
	slog.Debug("ranking cached", "op", op, "key", key.Digest, "year", year,
		"entries", len(rows), "size", humanize.Bytes(uint64(size+len(payload))))
	return nil
}

// PutGlobal stores a standalone summary such as completion rates.
func (s *Store) PutGlobal(ctx context.Context, op string, key filter.Key, year int, v any) error {
	payload, err := encode(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO global_cache (op, cache_key, vote_year, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`), op, key.Digest, year, payload)
	if err != nil {
		return apperr.Upstream(fmt.Errorf("insert global: %w", err))
	}
	return nil
}

// Global loads the summary row into dst. It reports false when the row
// does not exist.
func (s *Store) Global(ctx context.Context, op string, key filter.Key, year int, dst any) (bool, error) {
	return s.one(ctx, dst, `
		SELECT payload FROM global_cache
		WHERE op = $1 AND cache_key = $2 AND vote_year = $3`, op, key.Digest, year)
}

// Entry loads the ranking entry with the given dense rank.
func (s *Store) Entry(ctx context.Context, op string, key filter.Key, year, rank int, dst any) (bool, error) {
	return s.one(ctx, dst, `
		SELECT payload FROM ranking_entry_cache
		WHERE op = $1 AND cache_key = $2 AND vote_year = $3 AND rank = $4`, op, key.Digest, year, rank)
}

// EntryByName loads the ranking entry of an item.
func (s *Store) EntryByName(ctx context.Context, op string, key filter.Key, year int, name string, dst any) (bool, error) {
	return s.one(ctx, dst, `
		SELECT payload FROM ranking_entry_cache
		WHERE op = $1 AND cache_key = $2 AND vote_year = $3 AND name = $4`, op, key.Digest, year, name)
}

// Entries loads all ranking entries in rank order.
func Entries[E any](ctx context.Context, s *Store, op string, key filter.Key, year int) ([]E, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT payload FROM ranking_entry_cache
		WHERE op = $1 AND cache_key = $2 AND vote_year = $3
		ORDER BY rank`), op, key.Digest, year)
	if err != nil {
		return nil, apperr.Upstream(fmt.Errorf("query entries: %w", err))
	}
	defer rows.Close()

	entries := []E{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, apperr.Upstream(fmt.Errorf("scan entry: %w", err))
		}
		var e E
		if err := decode(payload, &e); err != nil {
			return nil, apperr.Upstream(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream(fmt.Errorf("iterate entries: %w", err))
	}
	return entries, nil
}

// Covote loads the covote table for a top-K size.
func (s *Store) Covote(ctx context.Context, op string, key filter.Key, year, k int, dst any) (bool, error) {
	return s.one(ctx, dst, `
		SELECT payload FROM covote_cache
		WHERE op = $1 AND cache_key = $2 AND vote_year = $3 AND first_k = $4`, op, key.Digest, year, k)
}

func (s *Store) PutCovote(ctx context.Context, op string, key filter.Key, year, k int, v any) error {
	payload, err := encode(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO covote_cache (op, cache_key, vote_year, first_k, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING`), op, key.Digest, year, k, payload)
	if err != nil {
		return apperr.Upstream(fmt.Errorf("insert covote: %w", err))
	}
	return nil
}

// Questions loads the cached tabulations among ids. Missing ids are absent
// from the result.
func (s *Store) Questions(ctx context.Context, key filter.Key, year int, ids []string) (map[string]models.QuestionTabulation, error) {
	out := make(map[string]models.QuestionTabulation, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := &filter.Args{}
	query := "SELECT question_id, payload FROM question_cache WHERE cache_key = " + args.Add(key.Digest) +
		" AND vote_year = " + args.Add(year) + " AND question_id IN ("
	for i, id := range ids {
		if i > 0 {
			query += ", "
		}
		query += args.Add(id)
	}
	query += ")"

	rows, err := s.db.QueryContext(ctx, s.q(query), args.Values...)
	if err != nil {
		return nil, apperr.Upstream(fmt.Errorf("query questions: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, apperr.Upstream(fmt.Errorf("scan question: %w", err))
		}
		var tab models.QuestionTabulation
		if err := decode(payload, &tab); err != nil {
			return nil, apperr.Upstream(err)
		}
		out[id] = tab
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream(fmt.Errorf("iterate questions: %w", err))
	}
	return out, nil
}

// PutQuestions stores one row per tabulation.
func (s *Store) PutQuestions(ctx context.Context, key filter.Key, year int, tabs map[string]models.QuestionTabulation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Upstream(fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	for id, tab := range tabs {
		payload, err := encode(tab)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO question_cache (cache_key, vote_year, question_id, payload)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`), key.Digest, year, id, payload); err != nil {
			return apperr.Upstream(fmt.Errorf("insert question: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Upstream(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) one(ctx context.Context, dst any, query string, args ...any) (bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.q(query), args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Upstream(fmt.Errorf("query cache: %w", err))
	}
	if err := decode(payload, dst); err != nil {
		return false, apperr.Upstream(err)
	}
	return true, nil
}
