// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PatchyVideo/thvote-be/models"
	"github.com/PatchyVideo/thvote-be/testutil"
)

// TestConcurrentIdenticalQueries verifies that simultaneous cache misses for
// the same result scan the ballots once and all receive the same body
func TestConcurrentIdenticalQueries(t *testing.T) {
	s := setupHandler(t, sampleBallots()...)

	numClients := 10
	bodies := make([]string, numClients)
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := s.post("/v1/chars-rank", body(nil))
			if w.Code == http.StatusOK {
				successCount.Add(1)
				bodies[idx] = w.Body.String()
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numClients {
		t.Fatalf("Expected %d successful queries, got %d", numClients, successCount.Load())
	}
	if s.engine.Scans() != 1 {
		t.Errorf("Expected exactly 1 scan, got %d", s.engine.Scans())
	}
	for i := 1; i < numClients; i++ {
		if bodies[i] != bodies[0] {
			t.Errorf("Response %d differs from response 0", i)
		}
	}
}

// TestParallelDistinctQueries verifies that different filters are computed
// independently and each exactly once
func TestParallelDistinctQueries(t *testing.T) {
	s := setupHandler(t, sampleBallots()...)

	queries := []string{"", `chars="Reimu"`, `chars="Marisa"`, `q1="a"`}
	var wg sync.WaitGroup

	for round := 0; round < 3; round++ {
		for _, q := range queries {
			wg.Add(1)
			go func(query string) {
				defer wg.Done()
				w := s.post("/v1/chars-rank", body(map[string]interface{}{"query": query}))
				if w.Code != http.StatusOK {
					t.Errorf("Query %q failed with %d: %s", query, w.Code, w.Body.String())
				}
			}(q)
		}
	}

	wg.Wait()

	if s.engine.Scans() != int64(len(queries)) {
		t.Errorf("Expected %d scans, got %d", len(queries), s.engine.Scans())
	}

	// results are still served from cache afterwards
	w := s.post("/v1/chars-rank", body(map[string]interface{}{"query": `q1="a"`}))
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.RankingQueryResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.TotalVoters != 1 {
		t.Errorf("Expected 1 voter for q1=a, got %d", resp.TotalVoters)
	}
	if s.engine.Scans() != int64(len(queries)) {
		t.Errorf("Expected no extra scan, got %d", s.engine.Scans())
	}
}
