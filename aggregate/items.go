// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"fmt"

	"github.com/PatchyVideo/thvote-be/catalog"
	"github.com/PatchyVideo/thvote-be/models"
	"github.com/PatchyVideo/thvote-be/rank"
)

// ItemTally is the result of one scan over a character or music section.
type ItemTally struct {
	Section string
	Totals  Totals
	items   map[string]*counter
	window  Window
}

// Items accumulates the chars or musics section of every ballot in one
// pass. Ballots without the section are skipped.
func Items(ballots Ballots, section string, w Window) (*ItemTally, error) {
	if section != models.SectionChars && section != models.SectionMusics {
		return nil, fmt.Errorf("not an item section: %q", section)
	}
	t := &ItemTally{Section: section, items: make(map[string]*counter), window: w}

	for b, err := range ballots {
		if err != nil {
			return nil, err
		}
		s := b.Items(section)
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
		for _, p := range s.Picks {
			c := t.item(p.Name)
			if p.First && !firstSeen {
				firstSeen = true
				t.Totals.First++
				c.first++
				c.trendFirst[bucket]++
			}
			t.Totals.Votes++
			c.addVote(gender, bucket, p.Reason)
		}
	}
	return t, nil
}

func (t *ItemTally) item(name string) *counter {
	c, ok := t.items[name]
	if !ok {
		c = newCounter(t.window)
		t.items[name] = c
	}
	return c
}

// Len is the number of distinct items that received a vote.
func (t *ItemTally) Len() int { return len(t.items) }

// Ranking ranks the tally and joins catalog metadata. With fill set, catalog
// items that received no votes are appended with zero statistics.
func (t *ItemTally) Ranking(cat *catalog.Catalog, fill bool) ([]models.RankingEntry, models.RankingGlobal) {
	scores := make([]rank.Score, 0, len(t.items))
	for name, c := range t.items {
		scores = append(scores, rank.Score{Name: name, Votes: c.votes, First: c.first})
	}
	if fill {
		for _, name := range cat.Names(t.Section) {
			if _, ok := t.items[name]; !ok {
				scores = append(scores, rank.Score{Name: name})
			}
		}
	}

	placed := rank.Rank(scores)
	entries := make([]models.RankingEntry, len(placed))
	for i, p := range placed {
		c, ok := t.items[p.Name]
		if !ok {
			c = newCounter(t.window)
		}
		meta, _ := cat.Lookup(t.Section, p.Name)
		entries[i] = models.RankingEntry{
			Rank:                     p.Rank,
			DisplayRank:              p.DisplayRank,
			Name:                     p.Name,
			VoteCount:                c.votes,
			FirstVoteCount:           c.first,
			FirstVotePercentage:      rank.Ratio(c.first, c.votes),
			FirstVoteCountWeighted:   c.votes + c.first,
			CharacterType:            meta.Type,
			CharacterOrigin:          meta.Origin,
			FirstAppearance:          meta.FirstAppearance,
			NameJpn:                  meta.NameJpn,
			VotePercentage:           rank.Ratio(c.votes, t.Totals.Votes),
			FirstPercentage:          rank.Ratio(c.first, t.Totals.First),
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
