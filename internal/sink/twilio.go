package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/mattjoyce/actiongate/internal/config"
)

// Twilio sends an SMS through the Twilio Messages API.
type Twilio struct {
	name     string
	endpoint string
	cfg      config.SinkConfig
	client   *http.Client
	logger   *slog.Logger
}

// NewTwilio creates an SMS notifier.
func NewTwilio(name string, cfg config.SinkConfig, client *http.Client, logger *slog.Logger) *Twilio {
	base := cfg.BaseURL
	if base == "" {
		base = config.DefaultTwilioBaseURL
	}
	return &Twilio{
		name:     name,
		endpoint: fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(base, "/"), url.PathEscape(cfg.AccountSID)),
		cfg:      cfg,
		client:   client,
		logger:   logger.With("sink", name, "type", config.SinkTwilio),
	}
}

// Name returns the configured sink name.
func (t *Twilio) Name() string { return t.name }

// Send delivers ev.Message to the configured recipient.
func (t *Twilio) Send(ctx context.Context, ev Event) error {
	message := ev.Message
	if message == "" {
		message = config.DefaultNotifyMessage
	}
	form := url.Values{
		"To":   {t.cfg.To},
		"From": {t.cfg.From},
		"Body": {message},
	}.Encode()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build twilio request: %w", err))
		}
		req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			return fmt.Errorf("send to twilio: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			t.logger.Debug("notification sent", "event_id", ev.ID, "status", resp.StatusCode)
			return nil
		}

		statusErr := &StatusError{Sink: t.name, StatusCode: resp.StatusCode, Body: trimBody(body)}
		if retryable(resp.StatusCode) {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	return deliver(ctx, t.logger, t.cfg.Retry, op)
}
