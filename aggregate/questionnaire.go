// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"sort"

	"github.com/PatchyVideo/thvote-be/models"
	"github.com/PatchyVideo/thvote-be/rank"
)

type questionCounter struct {
	answers  int
	options  map[string]int
	freeText []string
	trend    Histogram
}

// Questionnaire tabulates the requested questions in one pass. Every
// requested id gets a tabulation, empty if nobody answered it.
func Questionnaire(ballots Ballots, ids []string, w Window) (map[string]models.QuestionTabulation, error) {
	counters := make(map[string]*questionCounter, len(ids))
	for _, id := range ids {
		counters[id] = &questionCounter{options: make(map[string]int), freeText: []string{}, trend: w.NewHistogram()}
	}

	for b, err := range ballots {
		if err != nil {
			return nil, err
		}
		p := b.Questionnaire()
		if p == nil {
			continue
		}
		var bucket int
		bucketed := false
		for _, a := range p.Answers {
			q, ok := counters[a.ID]
			if !ok {
				continue
			}
			if !bucketed {
				if bucket, err = w.Bucket(p.SubmittedAt); err != nil {
					return nil, err
				}
				bucketed = true
			}
			q.answers++
			q.trend[bucket]++
			for _, opt := range a.Options {
				q.options[opt]++
			}
			if a.Text != "" {
				q.freeText = append(q.freeText, a.Text)
			}
		}
	}

	out := make(map[string]models.QuestionTabulation, len(counters))
	for id, q := range counters {
		out[id] = q.tabulation(id)
	}
	return out, nil
}

func (q *questionCounter) tabulation(id string) models.QuestionTabulation {
	opts := make([]models.OptionCount, 0, len(q.options))
	for opt, n := range q.options {
		opts = append(opts, models.OptionCount{Option: opt, Count: n, Percentage: rank.Ratio(n, q.answers)})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Option < opts[j].Option })
	return models.QuestionTabulation{
		QuestionID:   id,
		TotalAnswers: q.answers,
		Options:      opts,
		FreeText:     q.freeText,
		Trend:        q.trend.Items(),
	}
}
