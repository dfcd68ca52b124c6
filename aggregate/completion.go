// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aggregate

import (
	"github.com/PatchyVideo/thvote-be/models"
	"github.com/PatchyVideo/thvote-be/rank"
)

// Completion counts the ballots and how many of them submitted each
// section.
func Completion(ballots Ballots) (models.CompletionRate, error) {
	var c models.CompletionRate
	for b, err := range ballots {
		if err != nil {
			return models.CompletionRate{}, err
		}
		c.TotalVoters++
		if b.HasSection(models.SectionChars) {
			c.Chars++
		}
		if b.HasSection(models.SectionMusics) {
			c.Musics++
		}
		if b.HasSection(models.SectionCPs) {
			c.CPs++
		}
		if b.HasSection(models.SectionPaper) {
			c.Paper++
		}
	}
	c.CharsRate = rank.Ratio(c.Chars, c.TotalVoters)
	c.MusicsRate = rank.Ratio(c.Musics, c.TotalVoters)
	c.CPsRate = rank.Ratio(c.CPs, c.TotalVoters)
	c.PaperRate = rank.Ratio(c.Paper, c.TotalVoters)
	return c, nil
}
