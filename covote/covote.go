// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package covote

import (
	"fmt"
	"iter"

	"github.com/PatchyVideo/thvote-be/models"
)

// Analyzer accumulates 2x2 contingency tables for every pair of a fixed
// item list in one pass. Items are addressed by their position in the list
// (rank - 1); pair (i, j) with i < j lives at index j*(j-1)/2 + i.
//
// Per ballot only the selected items are touched. A selection of item i is
// counted in hits[i] and spread over the "only i" cells of all its pairs at
// Finish; pairs selected together get their double count undone right away.
type Analyzer struct {
	names []string
	index map[string]int

	m00, m01, m10, m11 []int
	hits               []int
	ballots            int
	seen               []int
}

func New(names []string) *Analyzer {
	k := len(names)
	pairs := k * (k - 1) / 2
	a := &Analyzer{
		names: names,
		index: make(map[string]int, k),
		m00:   make([]int, pairs),
		m01:   make([]int, pairs),
		m10:   make([]int, pairs),
		m11:   make([]int, pairs),
		hits:  make([]int, k),
	}
	for i, n := range names {
		if _, dup := a.index[n]; !dup {
			a.index[n] = i
		}
	}
	return a
}

func pairIndex(i, j int) int {
	return j*(j-1)/2 + i
}

// Add records one ballot's selection. Names outside the item list and
// repeated names are ignored.
func (a *Analyzer) Add(selected []string) {
	a.ballots++
	a.seen = a.seen[:0]
	for _, n := range selected {
		i, ok := a.index[n]
		if !ok || contains(a.seen, i) {
			continue
		}
		a.seen = append(a.seen, i)
		a.hits[i]++
	}
	s := a.seen
	for x := 0; x < len(s); x++ {
		for y := x + 1; y < len(s); y++ {
			i, j := s[x], s[y]
			if i > j {
				i, j = j, i
			}
			p := pairIndex(i, j)
			a.m11[p]++
			a.m00[p]++
			a.m10[p]--
			a.m01[p]--
		}
	}
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Ballots is the number of ballots added so far.
func (a *Analyzer) Ballots() int { return a.ballots }

// Finish applies the deferred per-item deltas and returns one CovoteItem
// per pair, ordered by (rank of A, rank of B). The Analyzer must not be
// used afterwards.
func (a *Analyzer) Finish() []models.CovoteItem {
	k := len(a.names)
	for i := 0; i < k; i++ {
		h := a.hits[i]
		if h == 0 {
			continue
		}
		for j := 0; j < k; j++ {
			switch {
			case j == i:
				continue
			case i < j:
				p := pairIndex(i, j)
				a.m10[p] += h
				a.m00[p] -= h
			default:
				p := pairIndex(j, i)
				a.m01[p] += h
				a.m00[p] -= h
			}
		}
	}

	items := make([]models.CovoteItem, 0, len(a.m00))
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			p := pairIndex(i, j)
			a.m00[p] += a.ballots
			items = append(items, Stats(a.names[i], a.names[j], a.m00[p], a.m01[p], a.m10[p], a.m11[p]))
		}
	}
	return items
}

// Stats fills the derived statistics of one table. Zero denominators are
// replaced by 1.
func Stats(nameA, nameB string, m00, m01, m10, m11 int) models.CovoteItem {
	n := float64(m00 + m01 + m10 + m11)
	f00, f01, f10, f11 := float64(m00), float64(m01), float64(m10), float64(m11)

	cross := f00*f11 - f01*f10
	return models.CovoteItem{
		A:               nameA,
		B:               nameB,
		M00:             m00,
		M01:             m01,
		M10:             m10,
		M11:             m11,
		ChiSquare:       n * cross * cross / guard((f00+f10)*(f00+f01)*(f11+f10)*(f11+f01)),
		MutualInfoRatio: f00 * n / guard((f00+f01)*(f00+f10)),
		CoVoteRate:      f11 / guard(f11+f01+f10),
	}
}

func guard(d float64) float64 {
	if d == 0 {
		return 1
	}
	return d
}

// Analyze scans the chars or musics section of every ballot against the
// given top-ranked names. Ballots without the section are not counted.
func Analyze(ballots iter.Seq2[*models.Ballot, error], section string, names []string) ([]models.CovoteItem, int, error) {
	if section != models.SectionChars && section != models.SectionMusics {
		return nil, 0, fmt.Errorf("covote not supported for section %q", section)
	}
	a := New(names)
	var picked []string
	for b, err := range ballots {
		if err != nil {
			return nil, 0, err
		}
		s := b.Items(section)
		if s == nil {
			continue
		}
		picked = picked[:0]
		for _, p := range s.Picks {
			picked = append(picked, p.Name)
		}
		a.Add(picked)
	}
	n := a.Ballots()
	return a.Finish(), n, nil
}
