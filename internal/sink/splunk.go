package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/mattjoyce/actiongate/internal/config"
)

// hecPath is the Splunk HTTP Event Collector JSON endpoint.
const hecPath = "/services/collector/event"

// Splunk forwards events to a Splunk HTTP Event Collector.
type Splunk struct {
	name     string
	endpoint string
	token    string
	channel  string
	cfg      config.SinkConfig
	client   *http.Client
	logger   *slog.Logger
}

type hecEvent struct {
	Time       float64         `json:"time"`
	Source     string          `json:"source,omitempty"`
	SourceType string          `json:"sourcetype,omitempty"`
	Index      string          `json:"index,omitempty"`
	Fields     map[string]any  `json:"fields,omitempty"`
	Event      json.RawMessage `json:"event"`
}

// NewSplunk creates a HEC forwarder. Each instance uses its own request channel.
func NewSplunk(name string, cfg config.SinkConfig, client *http.Client, logger *slog.Logger) *Splunk {
	return &Splunk{
		name:     name,
		endpoint: strings.TrimRight(cfg.URL, "/") + hecPath,
		token:    cfg.Token,
		channel:  uuid.NewString(),
		cfg:      cfg,
		client:   client,
		logger:   logger.With("sink", name, "type", config.SinkSplunk),
	}
}

// Name returns the configured sink name.
func (s *Splunk) Name() string { return s.name }

// Send posts ev to the collector, retrying network errors, 429 and 5xx.
func (s *Splunk) Send(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(hecEvent{
		Time:       float64(ev.Received.UnixMilli()) / 1000,
		Source:     s.cfg.Source,
		SourceType: s.cfg.SourceType,
		Index:      s.cfg.Index,
		Fields:     map[string]any{"event_id": ev.ID, "endpoint": ev.Endpoint},
		Event:      ev.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode HEC event: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build HEC request: %w", err))
		}
		req.Header.Set("Authorization", "Splunk "+s.token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Splunk-Request-Channel", s.channel)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("send to splunk: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.logger.Debug("event forwarded", "event_id", ev.ID, "status", resp.StatusCode)
			return nil
		}

		statusErr := &StatusError{Sink: s.name, StatusCode: resp.StatusCode, Body: trimBody(body)}
		if retryable(resp.StatusCode) {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	return deliver(ctx, s.logger, s.cfg.Retry, op)
}
