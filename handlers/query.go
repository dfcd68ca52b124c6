// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/PatchyVideo/thvote-be/apperr"
	"github.com/PatchyVideo/thvote-be/engine"
	"github.com/PatchyVideo/thvote-be/metrics"
	"github.com/PatchyVideo/thvote-be/middleware"
	"github.com/PatchyVideo/thvote-be/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// QueryHandler serves the result query endpoints.
type QueryHandler struct {
	engine  *engine.Engine
	metrics *metrics.Metrics
}

func NewQueryHandler(e *engine.Engine, m *metrics.Metrics) *QueryHandler {
	return &QueryHandler{engine: e, metrics: m}
}

// serve decodes and validates a request of type Req, runs it and writes
// the result or the error.
func serve[Req any, Resp any](h *QueryHandler, run func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			h.metrics.RequestErrors.WithLabelValues(string(apperr.KindInvalidRequest)).Inc()
			middleware.ErrorResponse(w, apperr.KindInvalidRequest, "Invalid JSON")
			return
		}
		if err := checkRequest(req); err != nil {
			h.fail(w, err)
			return
		}

		resp, err := run(r.Context(), req)
		if err != nil {
			h.fail(w, err)
			return
		}
		middleware.JSONResponse(w, http.StatusOK, resp)
	}
}

func (h *QueryHandler) fail(w http.ResponseWriter, err error) {
	h.metrics.RequestErrors.WithLabelValues(string(apperr.KindOf(err))).Inc()
	middleware.WriteError(w, err)
}

// checkRequest runs the struct validation and maps the first failure to
// an error kind.
func checkRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return apperr.Wrap(apperr.KindInvalidRequest, err)
	}

	fe := errs[0]
	field := fe.Field()
	switch {
	case field == "rank" || field == "first_k":
		return apperr.InvalidK(field)
	case strings.HasPrefix(field, "questions_of_interest"):
		return apperr.NoQuestions()
	case fe.Tag() == "required":
		return apperr.New(apperr.KindInvalidRequest, field+" is required")
	}
	return apperr.New(apperr.KindInvalidRequest, "invalid "+field)
}

// Ranking handles POST /v1/{chars,musics}-rank
func (h *QueryHandler) Ranking(section string) http.HandlerFunc {
	return serve(h, func(ctx context.Context, req models.RankingQueryRequest) (*models.RankingQueryResponse, error) {
		return h.engine.Ranking(ctx, section, req)
	})
}

// CPRanking handles POST /v1/cps-rank
func (h *QueryHandler) CPRanking(w http.ResponseWriter, r *http.Request) {
	serve(h, h.engine.CPRanking)(w, r)
}

// Reasons handles POST /v1/{chars,musics,cps}-reasons
func (h *QueryHandler) Reasons(section string) http.HandlerFunc {
	return serve(h, func(ctx context.Context, req models.RankRequest) (*models.ReasonsResponse, error) {
		return h.engine.Reasons(ctx, section, req)
	})
}

// Trend handles POST /v1/{chars,musics}-trend
func (h *QueryHandler) Trend(section string) http.HandlerFunc {
	return serve(h, func(ctx context.Context, req models.TrendRequest) (*models.TrendResponse, error) {
		return h.engine.Trend(ctx, section, req)
	})
}

// CPTrend handles POST /v1/cps-trend
func (h *QueryHandler) CPTrend(w http.ResponseWriter, r *http.Request) {
	serve(h, h.engine.CPTrend)(w, r)
}

// Single handles POST /v1/{chars,musics}-single
func (h *QueryHandler) Single(section string) http.HandlerFunc {
	return serve(h, func(ctx context.Context, req models.RankRequest) (*models.RankingEntry, error) {
		return h.engine.Single(ctx, section, req)
	})
}

// CPSingle handles POST /v1/cps-single
func (h *QueryHandler) CPSingle(w http.ResponseWriter, r *http.Request) {
	serve(h, h.engine.CPSingle)(w, r)
}

// GlobalStats handles POST /v1/global-stats
func (h *QueryHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	serve(h, h.engine.GlobalStats)(w, r)
}

// CompletionRates handles POST /v1/completion-rates
func (h *QueryHandler) CompletionRates(w http.ResponseWriter, r *http.Request) {
	serve(h, h.engine.CompletionRates)(w, r)
}

// Questionnaire handles POST /v1/paper-query
func (h *QueryHandler) Questionnaire(w http.ResponseWriter, r *http.Request) {
	serve(h, h.engine.Questionnaire)(w, r)
}

// PaperTrend handles POST /v1/paper-trend
func (h *QueryHandler) PaperTrend(w http.ResponseWriter, r *http.Request) {
	serve(h, h.engine.PaperTrend)(w, r)
}

// Covote handles POST /v1/{chars,musics}-covote
func (h *QueryHandler) Covote(section string) http.HandlerFunc {
	return serve(h, func(ctx context.Context, req models.CovoteRequest) (*models.CovoteResponse, error) {
		return h.engine.Covote(ctx, section, req)
	})
}
