// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/PatchyVideo/thvote-be/aggregate"
	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/cache"
	"github.com/PatchyVideo/thvote-be/catalog"
	"github.com/PatchyVideo/thvote-be/cliparse"
	"github.com/PatchyVideo/thvote-be/db"
	"github.com/PatchyVideo/thvote-be/filter"
	"github.com/PatchyVideo/thvote-be/metrics"
	"github.com/PatchyVideo/thvote-be/models"
	"github.com/PatchyVideo/thvote-be/store"
)

var tracer = otel.Tracer("thvote.result-query.engine")

// Engine answers ranking and statistics queries, computing each distinct
// result at most once and serving it from the cache afterwards.
type Engine struct {
	ballots *store.Store
	cache   *cache.Store
	locker  *cache.Locker
	catalog *catalog.Catalog
	metrics *metrics.Metrics
	group   singleflight.Group

	trendHours  int
	maxQueryLen int
}

func New(conn *sql.DB, d db.Dialect, cat *catalog.Catalog, m *metrics.Metrics, cfg cliparse.Config) *Engine {
	return &Engine{
		ballots:     store.New(conn, d),
		cache:       cache.NewStore(conn, d),
		locker:      cache.NewLocker(conn, d, cfg.LockLease, cfg.LockWait),
		catalog:     cat,
		metrics:     m,
		trendHours:  cfg.TrendHours,
		maxQueryLen: cfg.MaxQueryLen,
	}
}

// Scans reports how many ballot scans this engine has started.
func (e *Engine) Scans() int64 { return e.ballots.Scans() }

// Locker exposes the lock coordinator, e.g. to tune polling in tests.
func (e *Engine) Locker() *cache.Locker { return e.locker }

// query is a validated and compiled request.
type query struct {
	filter *filter.Node
	key    filter.Key
	year   int
	window aggregate.Window
}

func (e *Engine) prepare(req models.RankingQueryRequest) (query, error) {
	if utf8.RuneCountInString(req.Query) > e.maxQueryLen {
		return query{}, apperr.QueryTooLong(e.maxQueryLen)
	}
	node, err := filter.Compile(req.Query)
	if err != nil {
		return query{}, err
	}
	return query{
		filter: node,
		key:    filter.KeyOf(node),
		year:   req.VoteYear,
		window: aggregate.Window{Start: req.VoteStart, Hours: e.trendHours},
	}, nil
}

func lockName(op string, q query, sub ...string) string {
	name := op + ":" + q.key.Digest + ":" + strconv.Itoa(q.year)
	for _, s := range sub {
		name += ":" + s
	}
	return name
}

// ensure makes sure a result is cached. On a miss, concurrent callers in
// this process share one computation; across processes the named lock
// admits one scanner, and the cache is checked again once the lock is held.
// A caller whose context ends stops waiting without aborting the others.
func (e *Engine) ensure(ctx context.Context, op, name string, cached func(context.Context) (bool, error), fill func(context.Context) error) error {
	ok, err := cached(ctx)
	if err != nil {
		return err
	}
	e.metrics.Hit(op, ok)
	if ok {
		slog.Debug("cache hit", "op", op, "lock", name)
		return nil
	}
	slog.Debug("cache miss", "op", op, "lock", name)

	// the computation outlives any single caller; each caller only stops
	// waiting when its own context ends
	ch := e.group.DoChan(name, func() (any, error) {
		return nil, e.fillLocked(context.WithoutCancel(ctx), name, cached, fill)
	})
	select {
	case <-ctx.Done():
		slog.Debug("caller left in-flight computation", "op", op, "lock", name, "error", ctx.Err())
		return ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.Debug("joined in-flight computation", "op", op, "lock", name)
		}
		return res.Err
	}
}

// load is ensure followed by a read through get, skipped when one of the
// lookups inside ensure already loaded the result.
func (e *Engine) load(ctx context.Context, op, name string, get func(context.Context) (bool, error), fill func(context.Context) error) error {
	have := false
	cached := func(ctx context.Context) (bool, error) {
		ok, err := get(ctx)
		have = have || ok
		return ok, err
	}
	if err := e.ensure(ctx, op, name, cached, fill); err != nil {
		return err
	}
	if have {
		return nil
	}
	ok, err := get(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Upstream(fmt.Errorf("%s result missing after fill", op))
	}
	return nil
}

func (e *Engine) fillLocked(ctx context.Context, name string, cached func(context.Context) (bool, error), fill func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "engine.acquire", trace.WithAttributes(attribute.String("lock", name)))
	start := time.Now()
	lease, err := e.locker.Acquire(ctx, name)
	e.metrics.LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		if apperr.KindOf(err) == apperr.KindLockUnavailable {
			e.metrics.LockFailures.Inc()
			slog.Warn("scan lock unavailable", "lock", name, "error", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return err
	}
	span.End()
	defer func() {
		if err := lease.Release(ctx); err != nil {
			slog.Warn("lock release failed", "lock", name, "error", err)
		}
	}()

	ok, err := cached(ctx)
	if err != nil {
		return err
	}
	if ok {
		slog.Debug("filled by another holder", "lock", name)
		return nil
	}
	if lease.Lost() {
		e.metrics.LeasesLost.Inc()
		return apperr.LockUnavailable(fmt.Errorf("lease on %s lost before scan", name))
	}
	if err := fill(ctx); err != nil {
		return err
	}
	// rows are write-once, so a result written after losing the lease is
	// still the only one stored
	if lease.Lost() {
		e.metrics.LeasesLost.Inc()
		slog.Warn("lease lost while filling", "lock", name)
	}
	return nil
}

// scan streams the ballots of q into fn, recording a span and metrics.
func (e *Engine) scan(ctx context.Context, op string, q query, fn func(aggregate.Ballots) error) error {
	ctx, span := tracer.Start(ctx, "engine.scan", trace.WithAttributes(
		attribute.String("op", op),
		attribute.String("cache_key", q.key.Digest),
		attribute.Int("vote_year", q.year),
	))
	defer span.End()

	start := time.Now()
	n := 0
	ballots := func(yield func(*models.Ballot, error) bool) {
		for b, err := range e.ballots.Ballots(ctx, q.filter, q.year) {
			if err == nil {
				n++
			}
			if !yield(b, err) {
				return
			}
		}
	}

	if err := fn(ballots); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !errors.As(err, new(*apperr.Error)) && !errors.Is(err, context.Canceled) {
			slog.Error("scan failed", "op", op, "key", q.key.Text, "year", q.year, "error", err)
		}
		return err
	}

	d := time.Since(start)
	span.SetAttributes(attribute.Int("ballots", n))
	e.metrics.Scanned(op, n, d)
	slog.Info("scan complete", "op", op, "key", q.key.Text, "year", q.year, "ballots", n, "duration", d)
	return nil
}
