// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"sort"
	"strings"
	"time"
)

// Section selectors
const (
	SectionChars  = "chars"
	SectionMusics = "musics"
	SectionCPs    = "cps"
	SectionPaper  = "paper"
)

// Demographic question and its answer codes
const (
	DemographicQuestion = "q11011"
	DemographicMale     = "1101101"
	DemographicFemale   = "1101102"
)

// Ballot is one voter's submission for a poll year. Every section is
// optional and carries its own submission timestamp.
type Ballot struct {
	VoteID   string          `json:"vote_id"`
	VoteYear int             `json:"vote_year"`
	Chars    *ItemSection    `json:"chars,omitempty"`
	Musics   *ItemSection    `json:"musics,omitempty"`
	CPs      *PairingSection `json:"cps,omitempty"`
	Paper    *PaperSection   `json:"paper,omitempty"`
}

type ItemPick struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
	First  bool   `json:"first,omitempty"`
}

type ItemSection struct {
	Picks       []ItemPick `json:"picks"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

type PairingPick struct {
	A      string `json:"a"`
	B      string `json:"b"`
	C      string `json:"c,omitempty"`
	Active string `json:"active,omitempty"`
	Reason string `json:"reason,omitempty"`
	First  bool   `json:"first,omitempty"`
}

type PairingSection struct {
	Picks       []PairingPick `json:"picks"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

type PaperAnswer struct {
	ID      string   `json:"id"`
	Options []string `json:"options,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type PaperSection struct {
	Answers     []PaperAnswer `json:"answers"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// Items returns the item section for chars or musics. An empty pick list
// counts as a skipped section and yields nil.
func (b *Ballot) Items(section string) *ItemSection {
	var s *ItemSection
	switch section {
	case SectionChars:
		s = b.Chars
	case SectionMusics:
		s = b.Musics
	}
	if s == nil || len(s.Picks) == 0 {
		return nil
	}
	return s
}

// Pairings returns the pairing section, or nil when skipped.
func (b *Ballot) Pairings() *PairingSection {
	if b.CPs == nil || len(b.CPs.Picks) == 0 {
		return nil
	}
	return b.CPs
}

// Questionnaire returns the paper section, or nil when skipped.
func (b *Ballot) Questionnaire() *PaperSection {
	if b.Paper == nil || len(b.Paper.Answers) == 0 {
		return nil
	}
	return b.Paper
}

// HasSection reports whether the named section was submitted.
func (b *Ballot) HasSection(section string) bool {
	switch section {
	case SectionChars, SectionMusics:
		return b.Items(section) != nil
	case SectionCPs:
		return b.Pairings() != nil
	case SectionPaper:
		return b.Questionnaire() != nil
	}
	return false
}

// Gender classifies the voter by the demographic answer.
// Returns "male", "female" or "" when unanswered or unrecognised.
func (b *Ballot) Gender() string {
	p := b.Questionnaire()
	if p == nil {
		return ""
	}
	for _, a := range p.Answers {
		if a.ID != DemographicQuestion || len(a.Options) == 0 {
			continue
		}
		switch a.Options[0] {
		case DemographicMale:
			return "male"
		case DemographicFemale:
			return "female"
		}
	}
	return ""
}

// Attribute is one queryable (field, value) pair of a ballot.
type Attribute struct {
	Field string
	Value string
}

// Attributes lists the queryable values of the ballot. The intake service
// writes exactly these rows into vote_attr; filters match against them.
func (b *Ballot) Attributes() []Attribute {
	var attrs []Attribute
	addItems := func(section string, s *ItemSection) {
		if s == nil {
			return
		}
		for _, p := range s.Picks {
			attrs = append(attrs, Attribute{section + ".name", p.Name})
			if p.First {
				attrs = append(attrs, Attribute{section + "_first", p.Name})
			}
		}
	}
	addItems(SectionChars, b.Items(SectionChars))
	addItems(SectionMusics, b.Items(SectionMusics))

	if cps := b.Pairings(); cps != nil {
		seen := make(map[string]bool)
		for _, p := range cps.Picks {
			key := PairingKeyOf(p)
			for _, name := range key.Members() {
				if !seen[name] {
					seen[name] = true
					attrs = append(attrs, Attribute{SectionCPs + ".name", name})
				}
			}
			if p.First {
				attrs = append(attrs, Attribute{SectionCPs + "_first", key.String()})
			}
		}
	}

	if paper := b.Questionnaire(); paper != nil {
		for _, a := range paper.Answers {
			for _, opt := range a.Options {
				attrs = append(attrs, Attribute{a.ID + ".opt", opt})
			}
		}
	}
	return attrs
}

// PairingKey is the identity of a pairing: its member names in sorted
// order. Who was the active partner and the free-text reason are not part
// of the identity.
type PairingKey struct {
	A, B, C string
}

// NewPairingKey canonicalises an unordered pair or trio.
func NewPairingKey(a, b, c string) PairingKey {
	names := []string{a, b}
	if c != "" {
		names = append(names, c)
	}
	sort.Strings(names)
	k := PairingKey{A: names[0], B: names[1]}
	if len(names) == 3 {
		k.C = names[2]
	}
	return k
}

func PairingKeyOf(p PairingPick) PairingKey {
	return NewPairingKey(p.A, p.B, p.C)
}

func (k PairingKey) Members() []string {
	if k.C == "" {
		return []string{k.A, k.B}
	}
	return []string{k.A, k.B, k.C}
}

func (k PairingKey) String() string {
	return strings.Join(k.Members(), " × ")
}
