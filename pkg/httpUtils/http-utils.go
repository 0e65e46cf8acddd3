package http_utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTimeout is returned when a request does not complete within its budget.
var ErrTimeout = errors.New("request timed out")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string // Error field of a JSON error body, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// cancelOnClose releases the request deadline once the caller is done with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// FetchWithTimeout sends req with a hard deadline of timeout. On every error path the
// deadline timer is released before returning. On success the deadline also bounds the
// body read and stays armed until resp.Body is closed, so the caller must always close
// the body or the timer leaks until it fires. A deadline hit is reported as ErrTimeout.
// Non-2xx responses are returned as-is; checking the status is the caller's job.
func FetchWithTimeout(ctx context.Context, client *http.Client, req *http.Request, timeout time.Duration) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %s", timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s after %s: %w", req.Method, req.URL.Redacted(), timeout, ErrTimeout)
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// GetJSON issues a bounded GET and decodes a 2xx JSON body into out.
func GetJSON(ctx context.Context, client *http.Client, url string, timeout time.Duration, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(ctx, client, req, timeout, out)
}

// SendJSON issues a bounded request with a JSON body and an optional bearer token, then
// decodes a 2xx JSON response into out (out may be nil).
func SendJSON(ctx context.Context, client *http.Client, method, url, token string, body any, timeout time.Duration, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to serialize request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(ctx, client, req, timeout, out)
}

func do(ctx context.Context, client *http.Client, req *http.Request, timeout time.Duration, out any) error {
	resp, err := FetchWithTimeout(ctx, client, req, timeout)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body) == nil {
			statusErr.Message = body.Error
		}
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: reading body: %w", req.Method, req.URL.Redacted(), ErrTimeout)
		}
		return fmt.Errorf("%s %s: malformed JSON response: %w", req.Method, req.URL.Redacted(), err)
	}
	return nil
}
