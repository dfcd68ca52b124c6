// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/catalog"
	"github.com/PatchyVideo/thvote-be/db"
	"github.com/PatchyVideo/thvote-be/metrics"
	"github.com/PatchyVideo/thvote-be/models"
	"github.com/PatchyVideo/thvote-be/testutil"
)

type fixture struct {
	engine  *Engine
	metrics *metrics.Metrics
	insert  func(b *models.Ballot)
	exec    func(query string, args ...any)
}

func setup(t *testing.T, cat *catalog.Catalog) *fixture {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	m := metrics.New(prometheus.NewRegistry())
	e := New(conn, db.SQLite, cat, m, testutil.GetTestConfig())
	e.Locker().PollInterval = 10 * time.Millisecond
	return &fixture{
		engine:  e,
		metrics: m,
		insert:  func(b *models.Ballot) { testutil.InsertBallot(t, conn, b) },
		exec: func(query string, args ...any) {
			_, err := conn.Exec(query, args...)
			require.NoError(t, err)
		},
	}
}

func request(query string) models.RankingQueryRequest {
	return models.RankingQueryRequest{Query: query, VoteStart: testutil.VoteStart, VoteYear: testutil.VoteYear}
}

func noFirst(hours float64, names ...string) *models.ItemSection {
	s := testutil.Chars(hours, names...)
	s.Picks[0].First = false
	return s
}

// seedScenario: A 5 votes (2 first), B 5 votes (1 first), C 3 votes
func seedScenario(f *fixture) {
	f.insert(&models.Ballot{Chars: testutil.Chars(1, "A", "B", "C"), Paper: testutil.Paper(1, map[string][]string{"q11011": {"1101101"}})})
	f.insert(&models.Ballot{Chars: testutil.Chars(2, "A", "B", "C")})
	f.insert(&models.Ballot{Chars: testutil.Chars(2, "B", "A", "C"), Musics: testutil.Musics(2, "M1")})
	f.insert(&models.Ballot{Chars: noFirst(5, "A", "B")})
	f.insert(&models.Ballot{Chars: noFirst(5, "A", "B")})
}

func TestRanking_Scenario(t *testing.T) {
	f := setup(t, nil)
	seedScenario(f)

	resp, err := f.engine.Ranking(context.Background(), models.SectionChars, request(""))
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)

	got := make([][3]any, len(resp.Entries))
	for i, e := range resp.Entries {
		got[i] = [3]any{e.Name, e.Rank, e.DisplayRank}
	}
	assert.Equal(t, [][3]any{{"A", 1, 1}, {"B", 2, 1}, {"C", 3, 3}}, got)

	assert.Equal(t, 13, resp.TotalVotes)
	assert.Equal(t, 3, resp.TotalFirst)
	assert.Equal(t, 5, resp.TotalVoters)
	assert.Equal(t, 3, resp.TotalUniqueItems)
	assert.Equal(t, 5.0, resp.MedianVotesPerItem)
	assert.Equal(t, 1, resp.Entries[0].MaleVoteCount)
}

func TestRanking_CacheIdempotence(t *testing.T) {
	f := setup(t, nil)
	seedScenario(f)
	ctx := context.Background()

	cold, err := f.engine.Ranking(ctx, models.SectionChars, request(`chars:["B","A"]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.engine.Scans())

	warm, err := f.engine.Ranking(ctx, models.SectionChars, request(`chars:["A","B"]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.engine.Scans(), "warm request must not rescan")

	coldJSON, err := json.Marshal(cold)
	require.NoError(t, err)
	warmJSON, err := json.Marshal(warm)
	require.NoError(t, err)
	assert.Equal(t, string(coldJSON), string(warmJSON))

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.CacheLookups.WithLabelValues("chars-rank", "hit")))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.CacheLookups.WithLabelValues("chars-rank", "miss")))

	// a different filter is a different result
	_, err = f.engine.Ranking(ctx, models.SectionChars, request(`chars="C"`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.engine.Scans())
}

func TestRanking_StaleAfterNewBallots(t *testing.T) {
	f := setup(t, nil)
	seedScenario(f)
	ctx := context.Background()

	first, err := f.engine.Ranking(ctx, models.SectionChars, request(""))
	require.NoError(t, err)

	f.insert(&models.Ballot{Chars: testutil.Chars(6, "Z")})
	second, err := f.engine.Ranking(ctx, models.SectionChars, request(""))
	require.NoError(t, err)

	assert.Equal(t, len(first.Entries), len(second.Entries))
	assert.Equal(t, int64(1), f.engine.Scans())
}

func TestRanking_CatalogFillOnlyWithoutFilter(t *testing.T) {
	cat, err := catalog.Parse([]byte("chars:\n  - name: A\n    origin: 东方红魔乡\n  - name: Unvoted\n"))
	require.NoError(t, err)
	f := setup(t, cat)
	seedScenario(f)
	ctx := context.Background()

	all, err := f.engine.Ranking(ctx, models.SectionChars, request(""))
	require.NoError(t, err)
	require.Len(t, all.Entries, 4)
	assert.Equal(t, "Unvoted", all.Entries[3].Name)
	assert.Zero(t, all.Entries[3].VoteCount)
	assert.Equal(t, 3, all.TotalUniqueItems)
	assert.Equal(t, "东方红魔乡", all.Entries[0].CharacterOrigin)
	assert.Equal(t, models.Unknown, all.Entries[1].CharacterOrigin)

	filtered, err := f.engine.Ranking(ctx, models.SectionChars, request(`chars="A"`))
	require.NoError(t, err)
	assert.Len(t, filtered.Entries, 3)
}

func TestValidation(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.engine.Ranking(ctx, models.SectionChars, request(strings.Repeat("灵", 1001)))
	assert.Equal(t, apperr.KindQueryTooLong, apperr.KindOf(err))

	_, err = f.engine.Ranking(ctx, models.SectionChars, request(`chars=`))
	assert.Equal(t, apperr.KindMalformedQuery, apperr.KindOf(err))

	_, err = f.engine.Ranking(ctx, models.SectionCPs, request(""))
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	_, err = f.engine.Questionnaire(ctx, models.QueryQuestionnaireRequest{RankingQueryRequest: request("")})
	assert.Equal(t, apperr.KindNoQuestions, apperr.KindOf(err))

	assert.Zero(t, f.engine.Scans(), "validation must fail before scanning")
}

func TestSingleReasonsTrend(t *testing.T) {
	f := setup(t, nil)
	s := testutil.Chars(1, "A", "B")
	s.Picks[0].Reason = "best girl"
	f.insert(&models.Ballot{Chars: s})
	f.insert(&models.Ballot{Chars: testutil.Chars(3, "A")})
	ctx := context.Background()

	entry, err := f.engine.Single(ctx, models.SectionChars, models.RankRequest{RankingQueryRequest: request(""), Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, "A", entry.Name)

	reasons, err := f.engine.Reasons(ctx, models.SectionChars, models.RankRequest{RankingQueryRequest: request(""), Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"best girl"}, reasons.Reasons)

	trend, err := f.engine.Trend(ctx, models.SectionChars, models.TrendRequest{RankingQueryRequest: request(""), Name: "A"})
	require.NoError(t, err)
	require.Len(t, trend.Trend, 720)
	assert.Equal(t, 1, trend.Trend[1].VoteCount)
	assert.Equal(t, 1, trend.Trend[3].VoteCount)
	assert.Equal(t, 2, trend.TrendFirst[1].VoteCount+trend.TrendFirst[3].VoteCount)

	_, err = f.engine.Single(ctx, models.SectionChars, models.RankRequest{RankingQueryRequest: request(""), Rank: 3})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.engine.Trend(ctx, models.SectionChars, models.TrendRequest{RankingQueryRequest: request(""), Name: "nobody"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Equal(t, int64(1), f.engine.Scans())
}

func TestCPRanking(t *testing.T) {
	f := setup(t, nil)
	cps := func(picks ...models.PairingPick) *models.Ballot {
		return &models.Ballot{CPs: &models.PairingSection{SubmittedAt: testutil.At(1), Picks: picks}}
	}
	f.insert(cps(models.PairingPick{A: "X", B: "Y", Active: "X", First: true}))
	f.insert(cps(models.PairingPick{A: "Y", B: "X", Active: "X", Reason: "otp"}))
	f.insert(cps(models.PairingPick{A: "P", B: "Q"}))
	ctx := context.Background()

	resp, err := f.engine.CPRanking(ctx, request(""))
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "X × Y", resp.Entries[0].Name)
	assert.Equal(t, 2, resp.Entries[0].VoteCount)
	assert.Equal(t, 2, resp.Entries[0].ActiveA)
	assert.Equal(t, 1, resp.TotalUniqueItems)

	reasons, err := f.engine.Reasons(ctx, models.SectionCPs, models.RankRequest{RankingQueryRequest: request(""), Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"otp"}, reasons.Reasons)

	trend, err := f.engine.CPTrend(ctx, models.RankRequest{RankingQueryRequest: request(""), Rank: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, trend.Trend[1].VoteCount)

	// filtering on a member name
	filtered, err := f.engine.CPRanking(ctx, request(`cps="Q"`))
	require.NoError(t, err)
	assert.Empty(t, filtered.Entries)
}

func TestTrendOutOfRange(t *testing.T) {
	f := setup(t, nil)
	f.insert(&models.Ballot{Chars: testutil.Chars(24*30+1, "late")})

	_, err := f.engine.Ranking(context.Background(), models.SectionChars, request(""))
	assert.Equal(t, apperr.KindTrendOutOfRange, apperr.KindOf(err))

	// nothing was cached, so the next call scans again
	_, err = f.engine.Ranking(context.Background(), models.SectionChars, request(""))
	assert.Error(t, err)
	assert.Equal(t, int64(2), f.engine.Scans())
}

func TestLockUnavailable(t *testing.T) {
	f := setup(t, nil)
	seedScenario(f)
	ctx := context.Background()

	q, err := f.engine.prepare(request(""))
	require.NoError(t, err)
	f.exec(`INSERT INTO query_lock (name, owner, expires_at) VALUES (?, ?, ?)`,
		lockName("chars-rank", q), "other-process", time.Now().Add(time.Minute).UnixMilli())

	_, err = f.engine.Ranking(ctx, models.SectionChars, request(""))
	require.Error(t, err)
	assert.Equal(t, apperr.KindLockUnavailable, apperr.KindOf(err))
	assert.Zero(t, f.engine.Scans())
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.LockFailures))

	// other results are unaffected
	_, err = f.engine.Ranking(ctx, models.SectionMusics, request(""))
	assert.NoError(t, err)
}

func TestCancelledCallerDoesNotAbortOthers(t *testing.T) {
	f := setup(t, nil)
	seedScenario(f)

	q, err := f.engine.prepare(request(""))
	require.NoError(t, err)
	name := lockName("chars-rank", q)
	f.exec(`INSERT INTO query_lock (name, owner, expires_at) VALUES (?, ?, ?)`,
		name, "other-process", time.Now().Add(time.Minute).UnixMilli())

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.engine.Ranking(firstCtx, models.SectionChars, request(""))
		firstErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	type result struct {
		resp *models.RankingQueryResponse
		err  error
	}
	second := make(chan result, 1)
	go func() {
		resp, err := f.engine.Ranking(context.Background(), models.SectionChars, request(""))
		second <- result{resp, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// the other holder goes away while the shared computation still waits
	f.exec(`DELETE FROM query_lock WHERE name = ?`, name)

	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.resp.Entries, 3)
	assert.Equal(t, "A", res.resp.Entries[0].Name)
	assert.Equal(t, int64(1), f.engine.Scans())
}

func TestLeaseLostWhileFilling(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	m := metrics.New(prometheus.NewRegistry())
	cfg := testutil.GetTestConfig()
	cfg.LockLease = 60 * time.Millisecond
	e := New(conn, db.SQLite, nil, m, cfg)

	filled := false
	cached := func(context.Context) (bool, error) { return false, nil }
	fill := func(ctx context.Context) error {
		// another process clears the row; the next keepalive finds nothing
		_, err := conn.ExecContext(ctx, `DELETE FROM query_lock WHERE name = ?`, "chars-rank:test:2024")
		require.NoError(t, err)
		time.Sleep(150 * time.Millisecond)
		filled = true
		return nil
	}

	err := e.fillLocked(context.Background(), "chars-rank:test:2024", cached, fill)
	require.NoError(t, err, "the result written by a lost lease is kept")
	assert.True(t, filled)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.LeasesLost))
}

func TestConcurrentMissesScanOnce(t *testing.T) {
	f := setup(t, nil)
	seedScenario(f)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.engine.Ranking(context.Background(), models.SectionChars, request(""))
			if !assert.NoError(t, err) {
				return
			}
			b, _ := json.Marshal(resp)
			results[i] = string(b)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.engine.Scans())
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestGlobalStatsAndCompletion(t *testing.T) {
	f := setup(t, nil)
	seedScenario(f)
	f.insert(&models.Ballot{Paper: testutil.Paper(1, map[string][]string{"q1": {"a"}})})
	ctx := context.Background()

	stats, err := f.engine.GlobalStats(ctx, request(""))
	require.NoError(t, err)
	assert.Equal(t, 13, stats.Chars.TotalVotes)
	assert.Equal(t, 1, stats.Musics.TotalVotes)
	assert.Zero(t, stats.CPs.TotalUniqueItems)
	assert.Equal(t, int64(3), f.engine.Scans())

	rates, err := f.engine.CompletionRates(ctx, request(""))
	require.NoError(t, err)
	assert.Equal(t, 6, rates.TotalVoters)
	assert.Equal(t, 5, rates.Chars)
	assert.Equal(t, 1, rates.Musics)
	assert.Equal(t, 2, rates.Paper)
	assert.InDelta(t, 5.0/6, rates.CharsRate, 1e-9)

	_, err = f.engine.CompletionRates(ctx, request(""))
	require.NoError(t, err)
	_, err = f.engine.GlobalStats(ctx, request(""))
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.engine.Scans())
}
