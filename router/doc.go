// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the result query API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(eng, m)

# Endpoints

Operational:

	GET /health  - Liveness
	GET /metrics - Prometheus metrics
	GET /        - Banner

Rankings (chars, musics):

	POST /v1/{section}-rank    - Full ranking
	POST /v1/{section}-reasons - Reasons of the entry at a rank
	POST /v1/{section}-trend   - Hourly histogram of an item by name
	POST /v1/{section}-single  - Entry at a rank
	POST /v1/{section}-covote  - Co-selection among the top first_k

Pairings:

	POST /v1/cps-rank, /v1/cps-reasons, /v1/cps-trend, /v1/cps-single

Summaries and questionnaire:

	POST /v1/global-stats
	POST /v1/completion-rates
	POST /v1/paper-query
	POST /v1/paper-trend

All query endpoints are wrapped with middleware.WithLogging.
*/
package router
