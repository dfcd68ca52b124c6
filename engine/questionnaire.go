// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/PatchyVideo/thvote-be/aggregate"
	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/models"
)

const paperOp = "paper"

// Questionnaire tabulates the requested questions. Cached tabulations are
// reused per question; only the missing ones are computed, in one scan.
// Entries follow the request order, duplicates removed.
func (e *Engine) Questionnaire(ctx context.Context, req models.QueryQuestionnaireRequest) (*models.QueryQuestionnaireResponse, error) {
	ids := dedupe(req.QuestionsOfInterest)
	if len(ids) == 0 {
		return nil, apperr.NoQuestions()
	}
	q, err := e.prepare(req.RankingQueryRequest)
	if err != nil {
		return nil, err
	}

	have, err := e.cache.Questions(ctx, q.key, q.year, ids)
	if err != nil {
		return nil, err
	}
	missing := missingIDs(ids, have)
	e.metrics.Hit(paperOp, len(missing) == 0)

	if len(missing) > 0 {
		cached := func(ctx context.Context) (bool, error) {
			got, err := e.cache.Questions(ctx, q.key, q.year, missing)
			if err != nil {
				return false, err
			}
			return len(got) == len(missing), nil
		}
		fill := func(ctx context.Context) error {
			got, err := e.cache.Questions(ctx, q.key, q.year, missing)
			if err != nil {
				return err
			}
			todo := missingIDs(missing, got)

			var tabs map[string]models.QuestionTabulation
			err = e.scan(ctx, paperOp, q, func(ballots aggregate.Ballots) error {
				var err error
				tabs, err = aggregate.Questionnaire(ballots, todo, q.window)
				return err
			})
			if err != nil {
				return err
			}
			return e.cache.PutQuestions(ctx, q.key, q.year, tabs)
		}
		// ensure repeats the first lookup; the metric was already recorded
		if err := e.ensure(ctx, paperOp+"-fill", lockName(paperOp, q, questionSetDigest(missing)), cached, fill); err != nil {
			return nil, err
		}

		fresh, err := e.cache.Questions(ctx, q.key, q.year, missing)
		if err != nil {
			return nil, err
		}
		for id, tab := range fresh {
			have[id] = tab
		}
	}

	resp := &models.QueryQuestionnaireResponse{Entries: make([]models.QuestionTabulation, 0, len(ids))}
	for _, id := range ids {
		tab, ok := have[id]
		if !ok {
			return nil, apperr.NotFound("question " + id)
		}
		resp.Entries = append(resp.Entries, tab)
	}
	return resp, nil
}

// PaperTrend returns the hourly answer histogram of one question.
func (e *Engine) PaperTrend(ctx context.Context, req models.TrendRequest) (*models.TrendResponse, error) {
	resp, err := e.Questionnaire(ctx, models.QueryQuestionnaireRequest{
		RankingQueryRequest: req.RankingQueryRequest,
		QuestionsOfInterest: []string{req.Name},
	})
	if err != nil {
		return nil, err
	}
	return &models.TrendResponse{Trend: resp.Entries[0].Trend}, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []string, have map[string]models.QuestionTabulation) []string {
	var out []string
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// questionSetDigest names the lock for a set of question ids.
func questionSetDigest(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	sum := blake3.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:8])
}
