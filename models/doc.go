// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the ballot document and the request, response and
result types of the query engine.

# Ballot Document

A Ballot holds up to four independently optional sections, each with its
own submission timestamp:

  - Chars, Musics: ranked item picks (name, reason, first choice flag)
  - CPs: pairing picks (two or three names, active partner, reason)
  - Paper: questionnaire answers (question id, options, free text)

A section with an empty list counts as skipped. Attributes lists the
(field, value) pairs that filters match against; the intake service writes
exactly these into the vote_attr table.

# Pairing Identity

PairingKey is the sorted member tuple of a pairing:

	NewPairingKey("X", "Y", "") == NewPairingKey("Y", "X", "")

The active partner and the reason never take part in identity.

# Request Types

  - RankingQueryRequest: query, vote_start, vote_year
  - RankRequest: + rank (>= 1)
  - TrendRequest: + name
  - CovoteRequest: + first_k (>= 1)
  - QueryQuestionnaireRequest: + questions_of_interest (non-empty)

# Result Types

  - RankingEntry, CPRankingEntry: per-item statistics with trend and reasons
  - RankingGlobal: totals, average and median per ranking
  - CovoteItem: 2x2 contingency table with derived statistics
  - QuestionTabulation: per-question option counts and free text
  - CompletionRate: section completion counts
  - ErrorResponse: service, error_kind and messages
*/
package models
