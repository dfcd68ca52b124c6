// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package rank orders aggregated items and computes ranking summaries.

# Ranks

Items are sorted by vote count (descending), first-choice count
(descending), then name. Two ranks are assigned:

  - Rank: dense position 1..N, used for paging and lookups by rank
  - DisplayRank: shared while the vote count stays the same

	name  votes  first  rank  display
	A     5      2      1     1
	B     5      1      2     1
	C     3      0      3     3

# Summaries

Global reports total votes, first-choice votes, unique items, average and
median votes per item. Every percentage in the engine goes through Ratio,
which divides by 1 instead of 0.
*/
package rank
