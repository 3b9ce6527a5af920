// Package sink delivers verified webhook events to downstream collaborators.
//
// Deliveries are best-effort: callers log a failed Send and carry on, so the
// original sender never sees a forwarding failure and never retries because of one.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mattjoyce/actiongate/internal/config"
)

//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks github.com/mattjoyce/actiongate/internal/sink Sink

// Sink delivers a single event downstream.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// Event is a verified inbound payload.
type Event struct {
	ID       string
	Endpoint string
	Received time.Time
	Payload  json.RawMessage
	// Message is the notification text for SMS sinks.
	Message string
}

// ErrUpstreamStatus matches any StatusError.
var ErrUpstreamStatus = errors.New("upstream returned non-2xx status")

// StatusError reports a non-2xx answer from a downstream service.
type StatusError struct {
	Sink       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Sink, e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Sink, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrUpstreamStatus) match.
func (e *StatusError) Is(target error) bool {
	return target == ErrUpstreamStatus
}

// retryable reports whether a status is worth another attempt.
func retryable(status int) bool {
	return status == 429 || status >= 500
}

// maxErrorBody caps how much of an upstream response ends up in errors and logs.
const maxErrorBody = 512

func trimBody(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}

func newBackOff(rc *config.RetryConfig) backoff.BackOff {
	if rc == nil || rc.MaxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	bo := backoff.NewExponentialBackOff()
	if rc.InitialInterval > 0 {
		bo.InitialInterval = rc.InitialInterval
	}
	if rc.MaxInterval > 0 {
		bo.MaxInterval = rc.MaxInterval
	}
	bo.MaxElapsedTime = rc.MaxElapsed
	return bo
}

// deliver runs op under the retry policy. op marks non-retryable failures with backoff.Permanent.
func deliver(ctx context.Context, logger *slog.Logger, rc *config.RetryConfig, op backoff.Operation) error {
	notify := func(err error, wait time.Duration) {
		logger.Warn("sink delivery failed, retrying", "error", err, "wait_ms", wait.Milliseconds())
	}
	return backoff.RetryNotify(op, backoff.WithContext(newBackOff(rc), ctx), notify)
}
