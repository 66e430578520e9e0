package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Retryable reports whether a status is worth another attempt.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// Client wraps an http.Client with retries of transient failures.
type Client struct {
	HTTP        *http.Client
	MaxAttempts int
	Backoff     time.Duration
}

// New returns a Client with four attempts starting at 200ms backoff.
func New(timeout time.Duration) *Client {
	return &Client{
		HTTP:        &http.Client{Timeout: timeout},
		MaxAttempts: 4,
		Backoff:     200 * time.Millisecond,
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// Do sends the request built by makeReq, retrying network errors and
// retryable statuses with exponential backoff. makeReq is called once per
// attempt so bodies can be rebuilt. Context cancellation stops the loop.
func (c *Client) Do(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		retry := false
		var se *StatusError
		if errors.As(err, &se) {
			retry = se.Retryable()
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == attempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}
