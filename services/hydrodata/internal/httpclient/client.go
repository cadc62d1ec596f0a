// Package httpclient provides the fetch capability used by data providers:
// a direct net/http implementation and a recorder that replays responses
// from a record store.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a request when the caller passes no timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent identifies hydrodata to remote endpoints.
const DefaultUserAgent = "hydrodata/0.1 (ANA/INMET data downloader)"

// Params holds flat query parameters. Values are strings, integers, floats
// or booleans.
type Params map[string]any

// Response is a transport-independent view of an HTTP response.
type Response struct {
	StatusCode int
	Header     map[string]string
	Content    []byte
}

// Fetcher performs a GET request.
type Fetcher interface {
	Get(ctx context.Context, url string, params Params, timeout time.Duration) (*Response, error)
}

// HTTPError reports a failed request. StatusCode is zero when the endpoint
// could not be reached at all.
type HTTPError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("connection error accessing %s: %v", e.URL, e.Err)
		}
		return fmt.Sprintf("connection error accessing %s", e.URL)
	}
	return fmt.Sprintf("HTTP %d accessing %s", e.StatusCode, e.URL)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is a transport failure with no
// response from the endpoint.
func IsConnectionError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == 0
}

// StatusCode extracts the HTTP status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode != 0 {
		return httpErr.StatusCode, true
	}
	return 0, false
}
