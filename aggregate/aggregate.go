// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"iter"
	"math"
	"time"

	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/models"
)

// Ballots is a single-use ballot sequence as produced by store.Ballots.
type Ballots = iter.Seq2[*models.Ballot, error]

// Window maps submission times onto hourly histogram buckets.
type Window struct {
	Start time.Time
	Hours int
}

// Bucket returns the hour index of t. Times outside [Start, Start+Hours)
// are an error.
func (w Window) Bucket(t time.Time) (int, error) {
	h := int(math.Floor(t.Sub(w.Start).Hours()))
	if h < 0 || h >= w.Hours {
		return 0, apperr.TrendOutOfRange(h, w.Hours)
	}
	return h, nil
}

// Histogram is a dense hourly counter.
type Histogram []int

func (w Window) NewHistogram() Histogram {
	return make(Histogram, w.Hours)
}

// Items renders the histogram as one trend point per hour.
func (h Histogram) Items() []models.TrendItem {
	out := make([]models.TrendItem, len(h))
	for i, n := range h {
		out[i] = models.TrendItem{Hrs: i, VoteCount: n}
	}
	return out
}

// counter accumulates the statistics of one ranked item.
type counter struct {
	votes      int
	first      int
	male       int
	female     int
	trend      Histogram
	trendFirst Histogram
	reasons    []string
}

func newCounter(w Window) *counter {
	return &counter{trend: w.NewHistogram(), trendFirst: w.NewHistogram(), reasons: []string{}}
}

// Totals are the section-wide counters of one scan.
type Totals struct {
	Votes        int
	First        int
	Voters       int
	MaleVoters   int
	FemaleVoters int
}

func (t *Totals) addVoter(gender string) {
	t.Voters++
	switch gender {
	case "male":
		t.MaleVoters++
	case "female":
		t.FemaleVoters++
	}
}

func (c *counter) addVote(gender string, bucket int, reason string) {
	c.votes++
	c.trend[bucket]++
	switch gender {
	case "male":
		c.male++
	case "female":
		c.female++
	}
	if reason != "" {
		c.reasons = append(c.reasons, reason)
	}
}
