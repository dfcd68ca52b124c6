// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package aggregate turns a ballot stream into per-item statistics in a single
pass.

# Sections

  - Items: characters or music, keyed by name
  - Pairings: keyed by models.PairingKey; pairings with a single vote are
    dropped before ranking
  - Questionnaire: keyed by question id
  - Completion: per-section submission counts

Each ballot contributes once to the voter totals and once per pick to the
vote totals. Gender comes from the demographic question; unclassified
voters count towards neither subtotal.

# Trends

Every vote lands in the hourly bucket floor(submitted_at - start) of the
section it belongs to. A bucket outside the configured window fails the
scan with TREND_OUT_OF_RANGE instead of being clipped.

# Percentages

All percentages use rank.Ratio, so a zero denominator yields the bare
numerator rather than NaN.
*/
package aggregate
