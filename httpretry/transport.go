// Package httpretry provides a bounded retry policy for HTTP calls to the
// external APIs this tool talks to. Transient failures (429 and common 5xx
// statuses, plus transport errors) are retried with exponential backoff;
// everything else is returned as-is.
package httpretry

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultAttempts is the total number of tries per request.
	DefaultAttempts = 3
	// DefaultBackoff is the delay before the first retry; it doubles on
	// each subsequent retry.
	DefaultBackoff = 1 * time.Second
)

// retryableStatuses mirrors the status set treated as transient by the
// upstream services' own client guidance.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Retryable reports whether a status code should be retried.
func Retryable(status int) bool {
	return retryableStatuses[status]
}

// Transport is an http.RoundTripper that retries transient failures.
type Transport struct {
	// Base performs the actual requests. http.DefaultTransport when nil.
	Base http.RoundTripper
	// Attempts is the total number of tries. DefaultAttempts when zero.
	Attempts int
	// Backoff is the initial retry delay. DefaultBackoff when zero.
	Backoff time.Duration
}

// RoundTrip retries the request up to Attempts times. The request body, if
// any, is buffered so it can be replayed on each attempt.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	backoff := t.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("httpretry: buffer request body: %w", err)
		}
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err = base.RoundTrip(req)
		if err != nil {
			// Give up immediately on cancellation rather than burning
			// the remaining attempts.
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}
		if !Retryable(resp.StatusCode) || attempt == attempts-1 {
			return resp, nil
		}

		// Drain so the underlying connection can be reused for the retry.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	return nil, fmt.Errorf("httpretry: giving up after %d attempts: %w", attempts, err)
}

// StatusError describes a non-success HTTP response, keeping a snippet of
// the body for log context.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
}

const maxErrorBodyBytes = 512

// NewStatusError reads up to a snippet of the response body and closes it.
func NewStatusError(operation string, resp *http.Response) *StatusError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	resp.Body.Close()
	return &StatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Body:       string(bytes.TrimSpace(snippet)),
	}
}
