// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/PatchyVideo/thvote-be/engine"
	"github.com/PatchyVideo/thvote-be/handlers"
	"github.com/PatchyVideo/thvote-be/metrics"
	"github.com/PatchyVideo/thvote-be/middleware"
	"github.com/PatchyVideo/thvote-be/models"
)

func NewRouter(eng *engine.Engine, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	h := handlers.NewQueryHandler(eng, m)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", m.Handler())

	// Item rankings
	for _, section := range []string{models.SectionChars, models.SectionMusics} {
		mux.HandleFunc("POST /v1/"+section+"-rank", middleware.WithLogging(h.Ranking(section)))
		mux.HandleFunc("POST /v1/"+section+"-reasons", middleware.WithLogging(h.Reasons(section)))
		mux.HandleFunc("POST /v1/"+section+"-trend", middleware.WithLogging(h.Trend(section)))
		mux.HandleFunc("POST /v1/"+section+"-single", middleware.WithLogging(h.Single(section)))
		mux.HandleFunc("POST /v1/"+section+"-covote", middleware.WithLogging(h.Covote(section)))
	}

	// Pairing ranking
	mux.HandleFunc("POST /v1/cps-rank", middleware.WithLogging(h.CPRanking))
	mux.HandleFunc("POST /v1/cps-reasons", middleware.WithLogging(h.Reasons(models.SectionCPs)))
	mux.HandleFunc("POST /v1/cps-trend", middleware.WithLogging(h.CPTrend))
	mux.HandleFunc("POST /v1/cps-single", middleware.WithLogging(h.CPSingle))

	// Summaries
	mux.HandleFunc("POST /v1/global-stats", middleware.WithLogging(h.GlobalStats))
	mux.HandleFunc("POST /v1/completion-rates", middleware.WithLogging(h.CompletionRates))

	// Questionnaire
	mux.HandleFunc("POST /v1/paper-query", middleware.WithLogging(h.Questionnaire))
	mux.HandleFunc("POST /v1/paper-trend", middleware.WithLogging(h.PaperTrend))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("thvote result-query API v1"))
	})

	return mux
}
