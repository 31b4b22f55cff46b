package feed

import (
	"errors"
	"fmt"

	"cointrack/pkg/market"
)

var (
	// ErrRateLimitExceeded means the upstream kept answering 429 after every retry.
	ErrRateLimitExceeded = errors.New("feed: rate limit exceeded")
	// ErrPermanentFetch means a non-2xx (other than 429) or malformed response.
	ErrPermanentFetch = errors.New("feed: permanent fetch error")
	// ErrTransientNetwork means the transport failed on every attempt.
	ErrTransientNetwork = errors.New("feed: transient network error")
	// ErrNoDataAvailable means the first page failed and no cached copy exists.
	ErrNoDataAvailable = errors.New("feed: no data available")
)

// FetchError reports a failed page fetch. It matches both its Kind sentinel
// and the underlying cause with errors.Is / errors.As.
type FetchError struct {
	Kind error
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (page %d)", e.Kind, e.Page)
	}
	return fmt.Sprintf("%v (page %d): %v", e.Kind, e.Page, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classify maps a raw provider error to its taxonomy sentinel.
func classify(err error) error {
	var statusErr *market.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.RateLimited() {
			return ErrRateLimitExceeded
		}
		return ErrPermanentFetch
	}
	var decodeErr *market.DecodeError
	if errors.As(err, &decodeErr) {
		return ErrPermanentFetch
	}
	return ErrTransientNetwork
}
