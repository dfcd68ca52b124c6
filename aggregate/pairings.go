// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"github.com/PatchyVideo/thvote-be/models"
	"github.com/PatchyVideo/thvote-be/rank"
)

// MinPairingVotes is the number of supporting ballots a pairing needs to
// be ranked.
const MinPairingVotes = 2

type pairingCounter struct {
	counter
	key models.PairingKey
	// votes naming A, B or C as the active partner, or none of them
	active [4]int
}

// PairingTally is the result of one scan over the pairing section.
type PairingTally struct {
	Totals   Totals
	pairings map[models.PairingKey]*pairingCounter
	window   Window
}

// Pairings accumulates the cps section of every ballot in one pass.
// Pairings are identified by their sorted member names only, and a ballot
// supports a pairing at most once: a repeated pick adds no vote, though
// its first-choice flag still counts when no earlier pick carried one.
func Pairings(ballots Ballots, w Window) (*PairingTally, error) {
	t := &PairingTally{pairings: make(map[models.PairingKey]*pairingCounter), window: w}

	for b, err := range ballots {
		if err != nil {
			return nil, err
		}
		s := b.Pairings()
		if s == nil {
			continue
		}
		bucket, err := w.Bucket(s.SubmittedAt)
		if err != nil {
			return nil, err
		}
		gender := b.Gender()
		t.Totals.addVoter(gender)

		firstSeen := false
		seen := make(map[models.PairingKey]bool, len(s.Picks))
		for _, p := range s.Picks {
			key := models.PairingKeyOf(p)
			c := t.pairing(key)
			if p.First && !firstSeen {
				firstSeen = true
				t.Totals.First++
				c.first++
				c.trendFirst[bucket]++
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			t.Totals.Votes++
			c.addVote(gender, bucket, p.Reason)
			c.active[activeSlot(key, p.Active)]++
		}
	}
	return t, nil
}

func activeSlot(key models.PairingKey, active string) int {
	switch {
	case active == "":
		return 3
	case active == key.A:
		return 0
	case active == key.B:
		return 1
	case active == key.C:
		return 2
	}
	return 3
}

func (t *PairingTally) pairing(key models.PairingKey) *pairingCounter {
	c, ok := t.pairings[key]
	if !ok {
		c = &pairingCounter{counter: *newCounter(t.window), key: key}
		t.pairings[key] = c
	}
	return c
}

// Ranking ranks the pairings with at least MinPairingVotes votes. Excluded
// pairings take no part in totals or percentages.
func (t *PairingTally) Ranking() ([]models.CPRankingEntry, models.RankingGlobal) {
	kept := make(map[string]*pairingCounter)
	var totals Totals
	for key, c := range t.pairings {
		if c.votes < MinPairingVotes {
			continue
		}
		kept[key.String()] = c
		totals.Votes += c.votes
		totals.First += c.first
	}

	scores := make([]rank.Score, 0, len(kept))
	for name, c := range kept {
		scores = append(scores, rank.Score{Name: name, Votes: c.votes, First: c.first})
	}
	placed := rank.Rank(scores)

	entries := make([]models.CPRankingEntry, len(placed))
	for i, p := range placed {
		c := kept[p.Name]
		entries[i] = models.CPRankingEntry{
			Rank:                     p.Rank,
			DisplayRank:              p.DisplayRank,
			Name:                     p.Name,
			CP:                       models.Pairing{A: c.key.A, B: c.key.B, C: c.key.C},
			VoteCount:                c.votes,
			FirstVoteCount:           c.first,
			FirstVotePercentage:      rank.Ratio(c.first, c.votes),
			FirstVoteCountWeighted:   c.votes + c.first,
			VotePercentage:           rank.Ratio(c.votes, totals.Votes),
			FirstPercentage:          rank.Ratio(c.first, totals.First),
			ActiveA:                  c.active[0],
			ActiveB:                  c.active[1],
			ActiveC:                  c.active[2],
			ActiveNone:               c.active[3],
			MaleVoteCount:            c.male,
			MalePercentagePerChar:    rank.Ratio(c.male, c.votes),
			MalePercentagePerTotal:   rank.Ratio(c.male, t.Totals.MaleVoters),
			FemaleVoteCount:          c.female,
			FemalePercentagePerChar:  rank.Ratio(c.female, c.votes),
			FemalePercentagePerTotal: rank.Ratio(c.female, t.Totals.FemaleVoters),
			Trend:                    c.trend.Items(),
			TrendFirst:               c.trendFirst.Items(),
			Reasons:                  c.reasons,
		}
	}
	return entries, rank.Global(placed, t.Totals.Voters)
}
