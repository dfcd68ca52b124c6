// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/db"
)

// DefaultPollInterval is how often Acquire retries a held lock.
const DefaultPollInterval = 50 * time.Millisecond

// Locker hands out named leases stored in the query_lock table, so that
// only one process at a time scans for a given result.
type Locker struct {
	db           *sql.DB
	dialect      db.Dialect
	lease        time.Duration
	wait         time.Duration
	PollInterval time.Duration
}

func NewLocker(conn *sql.DB, d db.Dialect, lease, wait time.Duration) *Locker {
	return &Locker{db: conn, dialect: d, lease: lease, wait: wait, PollInterval: DefaultPollInterval}
}

// Lease is a held lock. It is extended in the background until Release.
type Lease struct {
	locker *Locker
	name   string
	owner  string

	stop chan struct{}
	done chan struct{}

	mu   sync.Mutex
	lost bool
}

// Acquire takes the named lock, taking over an expired lease if needed. It
// polls until the wait timeout and then fails with LOCK_UNAVAILABLE.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lease, error) {
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.try(ctx, name, owner)
		if err != nil {
			return nil, err
		}
		if ok {
			lease := &Lease{locker: l, name: name, owner: owner, stop: make(chan struct{}), done: make(chan struct{})}
			go lease.keepalive()
			return lease, nil
		}
		if !time.Now().Before(deadline) {
			return nil, apperr.LockUnavailable(fmt.Errorf("lock %s still held after %v", name, l.wait))
		}

		timer := time.NewTimer(l.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) try(ctx context.Context, name, owner string) (bool, error) {
	now := time.Now()
	if _, err := l.db.ExecContext(ctx, l.dialect.Rebind(
		`DELETE FROM query_lock WHERE name = $1 AND expires_at < $2`),
		name, now.UnixMilli()); err != nil {
		return false, apperr.Upstream(fmt.Errorf("expire lock: %w", err))
	}

	res, err := l.db.ExecContext(ctx, l.dialect.Rebind(`
		INSERT INTO query_lock (name, owner, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`),
		name, owner, now.Add(l.lease).UnixMilli())
	if err != nil {
		return false, apperr.Upstream(fmt.Errorf("insert lock: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Upstream(fmt.Errorf("insert lock: %w", err))
	}
	return n == 1, nil
}

func (le *Lease) keepalive() {
	defer close(le.done)

	ticker := time.NewTicker(le.locker.lease / 3)
	defer ticker.Stop()

	for {
		select {
		case <-le.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), le.locker.lease/3)
			res, err := le.locker.db.ExecContext(ctx, le.locker.dialect.Rebind(
				`UPDATE query_lock SET expires_at = $1 WHERE name = $2 AND owner = $3`),
				time.Now().Add(le.locker.lease).UnixMilli(), le.name, le.owner)
			cancel()
			if err != nil {
				slog.Warn("lock keepalive failed", "lock", le.name, "error", err)
				continue
			}
			if n, _ := res.RowsAffected(); n == 0 {
				slog.Warn("lock lease lost", "lock", le.name)
				le.mu.Lock()
				le.lost = true
				le.mu.Unlock()
				return
			}
		}
	}
}

// Lost reports whether the lease expired and was taken by someone else.
func (le *Lease) Lost() bool {
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.lost
}

// Release stops the keepalive and deletes the lock row if still owned.
// It runs even when ctx is already cancelled.
func (le *Lease) Release(ctx context.Context) error {
	close(le.stop)
	<-le.done

	_, err := le.locker.db.ExecContext(context.WithoutCancel(ctx), le.locker.dialect.Rebind(
		`DELETE FROM query_lock WHERE name = $1 AND owner = $2`), le.name, le.owner)
	if err != nil {
		return apperr.Upstream(fmt.Errorf("release lock: %w", err))
	}
	return nil
}
