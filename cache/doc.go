// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cache stores computed results and coordinates who computes them.

# Store

Results are keyed by (op, filter digest, vote year) plus an optional
sub-key: rank or name for ranking entries, top-K size for covote tables,
question id for tabulations. Payloads are JSON compressed with zstd.

Rows are write-once (INSERT ... ON CONFLICT DO NOTHING). Nothing here
updates, expires or deletes them; new ballots do not invalidate results.

A ranking counts as cached once its global_cache row exists. PutRanking
writes entries and the global row in one transaction.

# Locks

Locker grants named leases backed by the query_lock table:

	lease, err := locker.Acquire(ctx, "chars-rank:"+key.Digest)
	if err != nil {
		return err // LOCK_UNAVAILABLE after the wait timeout
	}
	defer lease.Release(ctx)

A holder that crashes loses its lease after the lease duration. A live
holder extends it every lease/3 until Release.
*/
package cache
