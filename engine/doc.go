// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine answers result queries on top of the ballot store, the
result cache and the scan lock.

# Request Flow

Every operation follows the same path:

 1. Validate the query length and compile the filter (filter.Compile).
 2. Look the result up in the cache under (operation, cache key, year).
 3. On a miss, join any in-flight computation of the same result in this
    process (singleflight), then take the named scan lock.
 4. With the lock held, look again; another holder may have filled it.
 5. Scan the matching ballots once, aggregate, and write the result.
 6. Read the result back from the cache.

Step 6 makes a cold response byte-identical to every later warm one.

# Operations

  - Ranking, CPRanking: full rankings with global summary
  - Single, CPSingle, Reasons: one ranking entry by dense rank
  - Trend, CPTrend, PaperTrend: hourly histograms
  - GlobalStats, CompletionRates: cross-section summaries
  - Covote: pairwise co-selection among the top first_k items
  - Questionnaire: per-question tabulation, cached per question

Item-level lookups (Single, Reasons, Trend, Covote) reuse the cached
ranking of the same filter and never scan on their own for it.

# Lock Names

Scan locks are named op:digest:year with an optional suffix (first_k for
covote, the digest of the missing question set for the questionnaire).
*/
package engine
