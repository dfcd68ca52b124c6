// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/models"
)

func TestWithLogging(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		body       string
	}{
		{"implicit OK", 0, "ok"},
		{"bad request", http.StatusBadRequest, `{"error_kind":"INVALID_K"}`},
		{"not found", http.StatusNotFound, "missing"},
		{"lock unavailable", http.StatusServiceUnavailable, "busy"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := WithLogging(func(w http.ResponseWriter, r *http.Request) {
				called = true
				if tc.statusCode != 0 {
					w.WriteHeader(tc.statusCode)
				}
				w.Write([]byte(tc.body))
			})

			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest("POST", "/v1/chars-rank", nil))

			assert.True(t, called)
			expected := tc.statusCode
			if expected == 0 {
				expected = http.StatusOK
			}
			assert.Equal(t, expected, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		})
	}
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	rec.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rec.status)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{
			name:       "simple struct",
			statusCode: http.StatusOK,
			data:       map[string]string{"message": "hello"},
			expected:   `{"message":"hello"}`,
		},
		{
			name:       "reasons response",
			statusCode: http.StatusOK,
			data:       models.ReasonsResponse{Reasons: []string{"cute"}},
			expected:   `{"reasons":["cute"]}`,
		},
		{
			name:       "error response",
			statusCode: http.StatusBadRequest,
			data:       models.ErrorResponse{Service: "result-query", ErrorKind: "INVALID_K"},
			expected:   `{"service":"result-query","error_kind":"INVALID_K"}`,
		},
		{
			name:       "array data",
			statusCode: http.StatusOK,
			data:       []string{"a", "b", "c"},
			expected:   `["a","b","c"]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			// Check status code
			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}

			// Check Content-Type header
			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
			}

			// Check body (trim newline added by Encode)
			body := strings.TrimSpace(w.Body.String())
			if body != tc.expected {
				t.Errorf("Expected body '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	testCases := []struct {
		name           string
		kind           apperr.Kind
		message        string
		expectedStatus int
	}{
		{"invalid request", apperr.KindInvalidRequest, "vote_start is required", http.StatusBadRequest},
		{"invalid k", apperr.KindInvalidK, "rank must be at least 1", http.StatusBadRequest},
		{"not found", apperr.KindNotFound, "rank 9 not found", http.StatusNotFound},
		{"lock unavailable", apperr.KindLockUnavailable, "retry later", http.StatusServiceUnavailable},
		{"internal error", apperr.KindInternal, "", http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			ErrorResponse(w, tc.kind, tc.message)

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, w.Code)
			}
			if w.Header().Get("Content-Type") != "application/json" {
				t.Error("Expected Content-Type 'application/json'")
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Service != models.ServiceName {
				t.Errorf("Expected service '%s', got '%s'", models.ServiceName, resp.Service)
			}
			if resp.ErrorKind != string(tc.kind) {
				t.Errorf("Expected error_kind '%s', got '%s'", tc.kind, resp.ErrorKind)
			}
			if resp.HumanReadableMessage != tc.message {
				t.Errorf("Expected message '%s', got '%s'", tc.message, resp.HumanReadableMessage)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedKind   string
		expectedCause  string
	}{
		{
			name:           "query too long",
			err:            apperr.QueryTooLong(1000),
			expectedStatus: http.StatusBadRequest,
			expectedKind:   "QUERY_TOO_LONG",
		},
		{
			name:           "wrapped upstream",
			err:            fmt.Errorf("scan: %w", apperr.Upstream(errors.New("connection reset"))),
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   "UPSTREAM_STORE_ERROR",
			expectedCause:  "connection reset",
		},
		{
			name:           "lock unavailable",
			err:            apperr.LockUnavailable(nil),
			expectedStatus: http.StatusServiceUnavailable,
			expectedKind:   "LOCK_UNAVAILABLE",
		},
		{
			name:           "plain error hides its text",
			err:            errors.New("secret dsn"),
			expectedStatus: http.StatusInternalServerError,
			expectedKind:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteError(w, tc.err)

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, w.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.ErrorKind != tc.expectedKind {
				t.Errorf("Expected error_kind '%s', got '%s'", tc.expectedKind, resp.ErrorKind)
			}
			if resp.ErrorMessage != tc.expectedCause {
				t.Errorf("Expected error_message '%s', got '%s'", tc.expectedCause, resp.ErrorMessage)
			}
		})
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		body := `{"query":"chars=\"A\"","vote_start":"2024-07-01T00:00:00Z","vote_year":2024,"rank":3}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.RankRequest
		err := ParseJSONBody(req, &parsed)

		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.Query != `chars="A"` {
			t.Errorf("Expected query 'chars=\"A\"', got '%s'", parsed.Query)
		}
		if parsed.VoteYear != 2024 || parsed.Rank != 3 {
			t.Errorf("Expected year 2024 rank 3, got %d %d", parsed.VoteYear, parsed.Rank)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{invalid json}`))

		var parsed models.RankingQueryRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))

		var parsed models.RankingQueryRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for empty body")
		}
	})

	t.Run("extra fields ignored", func(t *testing.T) {
		body := `{"vote_year":2023,"unknown_field":"ignored"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.RankingQueryRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.VoteYear != 2023 {
			t.Errorf("Expected vote_year 2023, got %d", parsed.VoteYear)
		}
	})

	t.Run("body is closed after parsing", func(t *testing.T) {
		bodyReader := io.NopCloser(bytes.NewReader([]byte(`{"vote_year":2024}`)))
		req := httptest.NewRequest("POST", "/", bodyReader)

		var parsed models.RankingQueryRequest
		_ = ParseJSONBody(req, &parsed)

		remaining, _ := io.ReadAll(req.Body)
		if len(remaining) > 0 {
			t.Error("Expected body to be consumed/closed")
		}
	})
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("handled"))
	})
	handler := CORS(next)

	testCases := []struct {
		name          string
		method        string
		origin        string
		expectedBody  string
		expectedAllow string
	}{
		{"preflight from result page", "OPTIONS", "https://thvote.example", "", "https://thvote.example"},
		{"query with origin", "POST", "http://localhost:3000", "handled", "http://localhost:3000"},
		{"query without origin", "POST", "", "handled", "*"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/v1/chars-rank", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.expectedBody, w.Body.String())
			assert.Equal(t, tc.expectedAllow, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		})
	}
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{"forwarded chain takes first hop", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"}, "10.0.0.1:4000", "198.51.100.7"},
		{"forwarded single", map[string]string{"X-Forwarded-For": "2001:db8::5"}, "10.0.0.1:4000", "2001:db8::5"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "198.51.100.7", "X-Real-IP": "203.0.113.9"}, "10.0.0.1:4000", "198.51.100.7"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.9"}, "10.0.0.1:4000", "203.0.113.9"},
		{"remote with port", nil, "192.0.2.44:51234", "192.0.2.44"},
		{"remote without port", nil, "192.0.2.44", "192.0.2.44"},
		{"ipv6 remote keeps brackets", nil, "[::1]:8080", "[::1]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/global-stats", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tc.expected, GetClientIP(req))
		})
	}
}
