package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// TimeoutError reports that the backend did not answer before the request
// deadline elapsed.
type TimeoutError struct {
	BaseURL string
	Op      string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request timed out - is the backend running at %s?", e.Op, e.BaseURL)
}

// ConnectionError reports that the backend could not be reached at all.
type ConnectionError struct {
	BaseURL string
	Op      string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: cannot reach backend at %s: %v", e.Op, e.BaseURL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the backend, carrying the HTTP status
// and whatever detail message the server put in the body.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// StreamError reports an event stream failure: a transport drop, a non-2xx
// subscribe response, or a payload the channel handler rejected.
type StreamError struct {
	Channel string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Channel, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// classify converts a transport error from the HTTP client into the taxonomy
// callers match on with errors.As.
func (c *Client) classify(op string, err error) error {
	if isTimeout(err) {
		return &TimeoutError{BaseURL: c.baseURL, Op: op}
	}
	return &ConnectionError{BaseURL: c.baseURL, Op: op, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}
