// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package covote measures how often pairs of top-ranked items are voted for
together.

For items A (higher rank) and B over N ballots:

	m11  both selected
	m10  only A
	m01  only B
	m00  neither

	chi_square        = N(m00·m11 − m01·m10)² / ((m00+m10)(m00+m01)(m11+m10)(m11+m01))
	mutual_info_ratio = m00·N / ((m00+m01)(m00+m10))
	co_vote_rate      = m11 / (m11+m01+m10)

A ballot selecting s of the K items costs O(s²) during the scan; the O(K²)
spreading of single selections happens once in Finish.
*/
package covote
