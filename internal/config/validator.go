package config

import (
	"fmt"
	"strings"
)

// Validate checks structural correctness. A missing signing secret is not an
// error here: the server still starts and answers 500 on verified endpoints.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", c.Service.LogLevel)
	}
	if c.Service.LogFormat != "json" && c.Service.LogFormat != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", c.Service.LogFormat)
	}
	if c.Service.Listen == "" {
		return fmt.Errorf("service.listen is required")
	}
	if c.Service.ForwardTimeout <= 0 {
		return fmt.Errorf("service.forward_timeout must be positive")
	}

	for name, sc := range c.Sinks {
		if err := validateSink(name, sc); err != nil {
			return err
		}
	}

	if len(c.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}

	seen := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		if err := c.validateEndpoint(i, ep); err != nil {
			return err
		}
		if seen[ep.Path] {
			return fmt.Errorf("endpoints[%d]: duplicate path %q", i, ep.Path)
		}
		seen[ep.Path] = true
	}

	return nil
}

func (c *Config) validateEndpoint(i int, ep EndpointConfig) error {
	if !strings.HasPrefix(ep.Path, "/") {
		return fmt.Errorf("endpoints[%d]: path must start with / (got %q)", i, ep.Path)
	}

	var wantSink string
	switch ep.Action {
	case ActionClaims:
		if ep.Sink != "" {
			return fmt.Errorf("endpoints[%d] %s: claims action does not use a sink", i, ep.Path)
		}
		for j, cl := range ep.Claims {
			if cl.Key == "" {
				return fmt.Errorf("endpoints[%d] %s: claims[%d].key is required", i, ep.Path, j)
			}
		}
		return nil
	case ActionForward:
		wantSink = SinkSplunk
	case ActionNotify:
		wantSink = SinkTwilio
	default:
		return fmt.Errorf("endpoints[%d] %s: action must be one of: claims, forward, notify (got %q)", i, ep.Path, ep.Action)
	}

	if ep.Sink == "" {
		return fmt.Errorf("endpoints[%d] %s: %s action requires a sink", i, ep.Path, ep.Action)
	}
	sc, ok := c.Sinks[ep.Sink]
	if !ok {
		return fmt.Errorf("endpoints[%d] %s: sink %q is not defined", i, ep.Path, ep.Sink)
	}
	if sc.Type != wantSink {
		return fmt.Errorf("endpoints[%d] %s: %s action requires a %s sink, %q is %s", i, ep.Path, ep.Action, wantSink, ep.Sink, sc.Type)
	}
	return nil
}

func validateSink(name string, sc SinkConfig) error {
	var required map[string]string
	switch sc.Type {
	case SinkSplunk:
		required = map[string]string{"url": sc.URL, "token": sc.Token}
	case SinkTwilio:
		required = map[string]string{
			"account_sid": sc.AccountSID,
			"auth_token":  sc.AuthToken,
			"from":        sc.From,
			"to":          sc.To,
		}
	default:
		return fmt.Errorf("sinks.%s: type must be splunk or twilio (got %q)", name, sc.Type)
	}

	for _, field := range sortedKeys(required) {
		value := required[field]
		if value == "" {
			return fmt.Errorf("sinks.%s.%s is required", name, field)
		}
		if varName, unresolved := UnresolvedEnvVar(value); unresolved {
			return fmt.Errorf("sinks.%s.%s: environment variable ${%s} is not set", name, field, varName)
		}
	}

	if sc.Retry != nil && sc.Retry.MaxElapsed < 0 {
		return fmt.Errorf("sinks.%s.retry.max_elapsed must not be negative", name)
	}
	return nil
}
