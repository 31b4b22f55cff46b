package handler

import (
	"context"
	"errors"
	"net/http"

	"cointrack/pkg/engine"
	"cointrack/pkg/feed"
	"cointrack/pkg/portfolio"
)

type errorBody struct {
	Error string `json:"error"`
}

// errorHandler maps domain errors onto HTTP status codes.
func errorHandler(_ context.Context, err error) (int, any) {
	return statusOf(err), errorBody{Error: err.Error()}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrPurchaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, feed.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, feed.ErrNoDataAvailable),
		errors.Is(err, feed.ErrPermanentFetch),
		errors.Is(err, feed.ErrTransientNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
