// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the result query API.

# Handler Types

QueryHandler wraps the query engine and the metrics:

	h := handlers.NewQueryHandler(eng, m)

Section-specific endpoints take the section when registered:

	mux.HandleFunc("POST /v1/chars-rank", h.Ranking(models.SectionChars))
	mux.HandleFunc("POST /v1/cps-rank", h.CPRanking)

# Request Handling

Every endpoint follows the same steps:

 1. Decode the JSON body (INVALID_REQUEST on failure)
 2. Validate the struct tags with go-playground/validator
 3. Run the engine operation with the request context
 4. Write the result, or the error through middleware.WriteError

Validation failures map to error kinds:

	rank, first_k < 1            → INVALID_K
	questions_of_interest empty  → NO_QUESTIONNAIRE_REQUESTED
	vote_start, name missing     → INVALID_REQUEST

Failed requests are counted per kind in result_query_request_errors_total.
*/
package handlers
