package market

import (
	"fmt"
	"net/http"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.StatusCode, body)
}

// RateLimited reports whether the upstream asked the caller to slow down.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// DecodeError reports a response body that could not be parsed.
type DecodeError struct {
	Provider string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
