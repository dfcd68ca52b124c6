// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"

	"github.com/PatchyVideo/thvote-be/aggregate"
	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/cache"
	"github.com/PatchyVideo/thvote-be/models"
)

func rankOp(section string) string { return section + "-rank" }

func checkItemSection(section string) error {
	if section != models.SectionChars && section != models.SectionMusics {
		return apperr.New(apperr.KindInvalidRequest, fmt.Sprintf("unknown section %q", section))
	}
	return nil
}

// ensureRanking makes sure the ranking of a section is cached and returns
// its global summary.
func (e *Engine) ensureRanking(ctx context.Context, section string, q query) (models.RankingGlobal, error) {
	op := rankOp(section)
	var global models.RankingGlobal
	cached := func(ctx context.Context) (bool, error) {
		return e.cache.Global(ctx, op, q.key, q.year, &global)
	}
	fill := func(ctx context.Context) error {
		var rows []cache.Row
		var g models.RankingGlobal
		err := e.scan(ctx, op, q, func(ballots aggregate.Ballots) error {
			if section == models.SectionCPs {
				tally, err := aggregate.Pairings(ballots, q.window)
				if err != nil {
					return err
				}
				var entries []models.CPRankingEntry
				entries, g = tally.Ranking()
				for _, en := range entries {
					rows = append(rows, cache.Row{Rank: en.Rank, Name: en.Name, Entry: en})
				}
				return nil
			}
			tally, err := aggregate.Items(ballots, section, q.window)
			if err != nil {
				return err
			}
			var entries []models.RankingEntry
			entries, g = tally.Ranking(e.catalog, q.filter == nil)
			for _, en := range entries {
				rows = append(rows, cache.Row{Rank: en.Rank, Name: en.Name, Entry: en})
			}
			return nil
		})
		if err != nil {
			return err
		}
		return e.cache.PutRanking(ctx, op, q.key, q.year, rows, g)
	}

	if err := e.load(ctx, op, lockName(op, q), cached, fill); err != nil {
		return models.RankingGlobal{}, err
	}
	return global, nil
}

// Ranking returns the full character or music ranking.
func (e *Engine) Ranking(ctx context.Context, section string, req models.RankingQueryRequest) (*models.RankingQueryResponse, error) {
	if err := checkItemSection(section); err != nil {
		return nil, err
	}
	q, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	global, err := e.ensureRanking(ctx, section, q)
	if err != nil {
		return nil, err
	}
	entries, err := cache.Entries[models.RankingEntry](ctx, e.cache, rankOp(section), q.key, q.year)
	if err != nil {
		return nil, err
	}
	return &models.RankingQueryResponse{Entries: entries, RankingGlobal: global}, nil
}

// CPRanking returns the pairing ranking.
func (e *Engine) CPRanking(ctx context.Context, req models.RankingQueryRequest) (*models.CPRankingQueryResponse, error) {
	q, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	global, err := e.ensureRanking(ctx, models.SectionCPs, q)
	if err != nil {
		return nil, err
	}
	entries, err := cache.Entries[models.CPRankingEntry](ctx, e.cache, rankOp(models.SectionCPs), q.key, q.year)
	if err != nil {
		return nil, err
	}
	return &models.CPRankingQueryResponse{Entries: entries, RankingGlobal: global}, nil
}

// entryByRank loads one entry of a section's ranking into dst.
func (e *Engine) entryByRank(ctx context.Context, section string, req models.RankRequest, dst any) error {
	q, err := e.prepare(req.RankingQueryRequest)
	if err != nil {
		return err
	}
	if _, err := e.ensureRanking(ctx, section, q); err != nil {
		return err
	}
	ok, err := e.cache.Entry(ctx, rankOp(section), q.key, q.year, req.Rank, dst)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(fmt.Sprintf("rank %d", req.Rank))
	}
	return nil
}

// Single returns the character or music entry at a dense rank.
func (e *Engine) Single(ctx context.Context, section string, req models.RankRequest) (*models.RankingEntry, error) {
	if err := checkItemSection(section); err != nil {
		return nil, err
	}
	var entry models.RankingEntry
	if err := e.entryByRank(ctx, section, req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CPSingle returns the pairing entry at a dense rank.
func (e *Engine) CPSingle(ctx context.Context, req models.RankRequest) (*models.CPRankingEntry, error) {
	var entry models.CPRankingEntry
	if err := e.entryByRank(ctx, models.SectionCPs, req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Reasons returns the free-text reasons of the entry at a dense rank.
func (e *Engine) Reasons(ctx context.Context, section string, req models.RankRequest) (*models.ReasonsResponse, error) {
	if section == models.SectionCPs {
		entry, err := e.CPSingle(ctx, req)
		if err != nil {
			return nil, err
		}
		return &models.ReasonsResponse{Reasons: entry.Reasons}, nil
	}
	entry, err := e.Single(ctx, section, req)
	if err != nil {
		return nil, err
	}
	return &models.ReasonsResponse{Reasons: entry.Reasons}, nil
}

// Trend returns the hourly histograms of a character or music by name.
func (e *Engine) Trend(ctx context.Context, section string, req models.TrendRequest) (*models.TrendResponse, error) {
	if err := checkItemSection(section); err != nil {
		return nil, err
	}
	q, err := e.prepare(req.RankingQueryRequest)
	if err != nil {
		return nil, err
	}
	if _, err := e.ensureRanking(ctx, section, q); err != nil {
		return nil, err
	}
	var entry models.RankingEntry
	ok, err := e.cache.EntryByName(ctx, rankOp(section), q.key, q.year, req.Name, &entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(req.Name)
	}
	return &models.TrendResponse{Trend: entry.Trend, TrendFirst: entry.TrendFirst}, nil
}

// CPTrend returns the hourly histograms of the pairing at a dense rank.
func (e *Engine) CPTrend(ctx context.Context, req models.RankRequest) (*models.TrendResponse, error) {
	entry, err := e.CPSingle(ctx, req)
	if err != nil {
		return nil, err
	}
	return &models.TrendResponse{Trend: entry.Trend, TrendFirst: entry.TrendFirst}, nil
}

// GlobalStats returns the summaries of all three rankings.
func (e *Engine) GlobalStats(ctx context.Context, req models.RankingQueryRequest) (*models.GlobalStats, error) {
	q, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	var stats models.GlobalStats
	for _, s := range []struct {
		section string
		dst     *models.RankingGlobal
	}{
		{models.SectionChars, &stats.Chars},
		{models.SectionMusics, &stats.Musics},
		{models.SectionCPs, &stats.CPs},
	} {
		g, err := e.ensureRanking(ctx, s.section, q)
		if err != nil {
			return nil, err
		}
		*s.dst = g
	}
	return &stats, nil
}

// CompletionRates counts how many matching ballots submitted each section.
func (e *Engine) CompletionRates(ctx context.Context, req models.RankingQueryRequest) (*models.CompletionRate, error) {
	const op = "completion"
	q, err := e.prepare(req)
	if err != nil {
		return nil, err
	}
	var rate models.CompletionRate
	cached := func(ctx context.Context) (bool, error) {
		return e.cache.Global(ctx, op, q.key, q.year, &rate)
	}
	fill := func(ctx context.Context) error {
		var c models.CompletionRate
		err := e.scan(ctx, op, q, func(ballots aggregate.Ballots) error {
			var err error
			c, err = aggregate.Completion(ballots)
			return err
		})
		if err != nil {
			return err
		}
		return e.cache.PutGlobal(ctx, op, q.key, q.year, c)
	}
	if err := e.load(ctx, op, lockName(op, q), cached, fill); err != nil {
		return nil, err
	}
	return &rate, nil
}
