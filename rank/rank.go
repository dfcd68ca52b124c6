// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rank

import (
	"sort"

	"github.com/PatchyVideo/thvote-be/models"
)

// Score is the input to ranking: an item and its counts.
type Score struct {
	Name  string
	Votes int
	First int
}

// Placed is a ranked Score.
type Placed struct {
	Score
	Rank        int
	DisplayRank int
}

// Rank orders scores by votes, then first-choice votes, then name, and
// assigns ranks. Rank is dense (1..N). DisplayRank is shared by neighbours
// with equal vote counts and otherwise equals Rank.
func Rank(scores []Score) []Placed {
	sorted := append([]Score(nil), scores...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		if a.First != b.First {
			return a.First > b.First
		}
		return a.Name < b.Name
	})

	placed := make([]Placed, len(sorted))
	display := 1
	for i, s := range sorted {
		if i > 0 && s.Votes != sorted[i-1].Votes {
			display = i + 1
		}
		placed[i] = Placed{Score: s, Rank: i + 1, DisplayRank: display}
	}
	return placed
}

// Median of the vote counts: the middle value, the mean of the two middle
// values for an even count, or 0 for no values.
func Median(counts []int) float64 {
	n := len(counts)
	if n == 0 {
		return 0
	}
	sorted := append([]int(nil), counts...)
	sort.Ints(sorted)
	if n%2 == 0 {
		return 0.5 * float64(sorted[n/2-1]+sorted[n/2])
	}
	return float64(sorted[n/2])
}

// Average returns total/n, or 0 when n is 0.
func Average(total, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// Ratio divides n by d, substituting 1 for a zero denominator.
func Ratio(n, d int) float64 {
	if d == 0 {
		d = 1
	}
	return float64(n) / float64(d)
}

// Global summarises a ranking. Only items with at least one vote count
// towards the totals, average and median.
func Global(placed []Placed, totalVoters int) models.RankingGlobal {
	var counts []int
	g := models.RankingGlobal{TotalVoters: totalVoters}
	for _, p := range placed {
		if p.Votes == 0 {
			continue
		}
		counts = append(counts, p.Votes)
		g.TotalVotes += p.Votes
		g.TotalFirst += p.First
	}
	g.TotalUniqueItems = len(counts)
	g.AverageVotesPerItem = Average(g.TotalVotes, g.TotalUniqueItems)
	g.MedianVotesPerItem = Median(counts)
	return g
}
