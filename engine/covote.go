// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"strconv"

	"github.com/PatchyVideo/thvote-be/aggregate"
	"github.com/PatchyVideo/thvote-be/cache"
	"github.com/PatchyVideo/thvote-be/covote"
	"github.com/PatchyVideo/thvote-be/models"
)

// Covote returns the contingency tables of every pair among the top
// first_k items of a character or music ranking. K is clamped to the
// number of ranked items.
func (e *Engine) Covote(ctx context.Context, section string, req models.CovoteRequest) (*models.CovoteResponse, error) {
	if err := checkItemSection(section); err != nil {
		return nil, err
	}
	q, err := e.prepare(req.RankingQueryRequest)
	if err != nil {
		return nil, err
	}
	global, err := e.ensureRanking(ctx, section, q)
	if err != nil {
		return nil, err
	}
	k := min(req.FirstK, global.TotalUniqueItems)

	op := section + "-covote"
	var resp models.CovoteResponse
	cached := func(ctx context.Context) (bool, error) {
		return e.cache.Covote(ctx, op, q.key, q.year, k, &resp)
	}
	fill := func(ctx context.Context) error {
		entries, err := cache.Entries[models.RankingEntry](ctx, e.cache, rankOp(section), q.key, q.year)
		if err != nil {
			return err
		}
		names := make([]string, 0, k)
		for _, en := range entries[:min(k, len(entries))] {
			names = append(names, en.Name)
		}

		var out models.CovoteResponse
		err = e.scan(ctx, op, q, func(ballots aggregate.Ballots) error {
			items, n, err := covote.Analyze(ballots, section, names)
			if err != nil {
				return err
			}
			out = models.CovoteResponse{FirstK: len(names), TotalBallots: n, Items: items}
			return nil
		})
		if err != nil {
			return err
		}
		return e.cache.PutCovote(ctx, op, q.key, q.year, k, out)
	}

	if err := e.load(ctx, op, lockName(op, q, strconv.Itoa(k)), cached, fill); err != nil {
		return nil, err
	}
	return &resp, nil
}
