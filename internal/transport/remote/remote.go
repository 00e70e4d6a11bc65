// Package remote is the shared HTTP call path of the object store, triple
// store and search index clients: bounded timeouts, retries with exponential
// backoff on transport errors and retryable statuses, and per-call metrics.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/logger"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/metrics"
)

const (
	maxBody      = 64 << 20
	maxErrorBody = 512
)

// Retry bounds the attempts of one logical call.
type Retry struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// DefaultRetry is used when a client is built with a zero Retry.
var DefaultRetry = Retry{MaxAttempts: 3, Initial: 200 * time.Millisecond, Max: 5 * time.Second}

// Response is a fully read 2xx response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client executes requests against one remote target.
type Client struct {
	http   *http.Client
	target string
	retry  Retry
}

// New creates a client. target labels metrics and errors (ldp, sparql, search).
func New(target string, timeout time.Duration, retry Retry) *Client {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetry
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		target: target,
		retry:  retry,
	}
}

// RequestFunc builds a fresh request for each attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Do runs build until it yields a 2xx response, a permanent failure, or the
// retry budget is spent.
func (c *Client) Do(ctx context.Context, op string, build RequestFunc) (*Response, error) {
	var out *Response
	attempt := 0

	operation := func() error {
		attempt++
		req, err := build(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%s %s: build request: %w", c.target, op, err))
		}

		started := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			metrics.ObserveRemote(c.target, op, "error", started)
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("%s %s %s: %w", req.Method, req.URL, domain.ErrTransport, ctx.Err()))
			}
			return fmt.Errorf("%s %s: %w: %v", req.Method, req.URL, domain.ErrTransport, err)
		}
		defer resp.Body.Close()
		metrics.ObserveRemote(c.target, op, strconv.Itoa(resp.StatusCode), started)

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return fmt.Errorf("%s %s: read body: %w: %v", req.Method, req.URL, domain.ErrTransport, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			se := &domain.StatusError{Op: req.Method, URL: req.URL.String(), Status: resp.StatusCode, Body: truncate(body)}
			if se.Retryable() {
				return se
			}
			return backoff.Permanent(se)
		}

		out = &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.Initial
	b.MaxInterval = c.retry.Max
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retry.MaxAttempts-1)), ctx)

	log := logger.FromContext(ctx)
	notify := func(err error, wait time.Duration) {
		log.Debug("remote call retry",
			zap.String("target", c.target),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", c.target, op, err)
		}
		return nil, err
	}
	return out, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody])
	}
	return string(b)
}
