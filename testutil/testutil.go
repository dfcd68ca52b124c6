// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/PatchyVideo/thvote-be/cliparse"
	"github.com/PatchyVideo/thvote-be/db"
	"github.com/PatchyVideo/thvote-be/models"
)

// VoteStart is the poll start used by test ballots
var VoteStart = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

// VoteYear is the poll year used by test ballots
const VoteYear = 2024

// SetupTestDB creates a fresh file-backed SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := db.Open(db.SQLite, dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  "file:test.db",
		DatabaseType: "sqlite",
		LockLease:    2 * time.Second,
		LockWait:     time.Second,
		TrendHours:   cliparse.DefaultTrendHours,
		MaxQueryLen:  cliparse.DefaultMaxQueryLen,
	}
}

// InsertBallot stores a ballot and its queryable attributes the way the
// intake service does, returning its id
func InsertBallot(t *testing.T, conn *sql.DB, b *models.Ballot) string {
	t.Helper()

	if b.VoteID == "" {
		b.VoteID = uuid.NewString()
	}
	if b.VoteYear == 0 {
		b.VoteYear = VoteYear
	}
	payload, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Failed to encode ballot: %v", err)
	}

	_, err = conn.Exec(`INSERT INTO vote (id, vote_year, payload) VALUES (?, ?, ?)`, b.VoteID, b.VoteYear, string(payload))
	if err != nil {
		t.Fatalf("Failed to insert ballot: %v", err)
	}

	seen := make(map[models.Attribute]bool)
	for _, a := range b.Attributes() {
		if seen[a] {
			continue
		}
		seen[a] = true
		_, err := conn.Exec(`INSERT INTO vote_attr (vote_id, field, value) VALUES (?, ?, ?)`, b.VoteID, a.Field, a.Value)
		if err != nil {
			t.Fatalf("Failed to insert ballot attribute: %v", err)
		}
	}

	return b.VoteID
}

// At returns the poll start plus the given number of hours
func At(hours float64) time.Time {
	return VoteStart.Add(time.Duration(hours * float64(time.Hour)))
}

// Chars builds a character section. The first name is the first choice.
func Chars(hours float64, names ...string) *models.ItemSection {
	return itemSection(hours, names)
}

// Musics builds a music section. The first name is the first choice.
func Musics(hours float64, names ...string) *models.ItemSection {
	return itemSection(hours, names)
}

func itemSection(hours float64, names []string) *models.ItemSection {
	s := &models.ItemSection{SubmittedAt: At(hours)}
	for i, n := range names {
		s.Picks = append(s.Picks, models.ItemPick{Name: n, First: i == 0})
	}
	return s
}

// Paper builds a questionnaire section from question id → selected options
func Paper(hours float64, answers map[string][]string) *models.PaperSection {
	s := &models.PaperSection{SubmittedAt: At(hours)}
	for id, opts := range answers {
		s.Answers = append(s.Answers, models.PaperAnswer{ID: id, Options: opts})
	}
	return s
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
