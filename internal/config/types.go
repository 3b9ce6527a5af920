package config

import "time"

// Config represents the complete actiongate configuration.
type Config struct {
	Service   ServiceConfig         `yaml:"service"`
	Signing   SigningConfig         `yaml:"signing"`
	Endpoints []EndpointConfig      `yaml:"endpoints"`
	Sinks     map[string]SinkConfig `yaml:"sinks,omitempty"`

	// SourceFile is the absolute path the config was loaded from (empty for defaults).
	SourceFile string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name           string        `yaml:"name"`
	Listen         string        `yaml:"listen"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	ForwardTimeout time.Duration `yaml:"forward_timeout"`
}

// SigningConfig holds the shared secret used to verify inbound requests.
type SigningConfig struct {
	Secret string `yaml:"secret"`
	// Header is the default signature header for all endpoints.
	Header string `yaml:"header"`
}

// Endpoint actions.
const (
	ActionClaims  = "claims"
	ActionForward = "forward"
	ActionNotify  = "notify"
)

// EndpointConfig defines a single verified webhook endpoint.
type EndpointConfig struct {
	Path            string        `yaml:"path"`
	Action          string        `yaml:"action"`
	Sink            string        `yaml:"sink,omitempty"`
	SignatureHeader string        `yaml:"signature_header,omitempty"`
	MaxBodySize     string        `yaml:"max_body_size,omitempty"`
	Message         string        `yaml:"message,omitempty"` // notify only
	Claims          []ClaimConfig `yaml:"claims,omitempty"`  // claims only
}

// ClaimConfig is a single claim appended to the token.
type ClaimConfig struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Sink types.
const (
	SinkSplunk = "splunk"
	SinkTwilio = "twilio"
)

// SinkConfig defines a downstream collaborator. Fields are interpreted per Type.
type SinkConfig struct {
	Type string `yaml:"type"`

	// splunk
	URL        string `yaml:"url,omitempty"`
	Token      string `yaml:"token,omitempty"`
	Source     string `yaml:"source,omitempty"`
	SourceType string `yaml:"sourcetype,omitempty"`
	Index      string `yaml:"index,omitempty"`

	// twilio
	BaseURL    string `yaml:"base_url,omitempty"`
	AccountSID string `yaml:"account_sid,omitempty"`
	AuthToken  string `yaml:"auth_token,omitempty"`
	From       string `yaml:"from,omitempty"`
	To         string `yaml:"to,omitempty"`

	Retry *RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig defines backoff for transient sink failures.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed"`
}

// Default values
const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultSignatureHeader = "zitadel-signature"
	DefaultForwardTimeout  = 10 * time.Second
	DefaultTwilioBaseURL   = "https://api.twilio.com"
	DefaultNotifyMessage   = "Webhook received!"
)

// Defaults returns a Config serving the claims endpoint only.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:           "actiongate",
			Listen:         DefaultListen,
			LogLevel:       "info",
			LogFormat:      "json",
			ForwardTimeout: DefaultForwardTimeout,
		},
		Signing: SigningConfig{
			Header: DefaultSignatureHeader,
		},
		Endpoints: []EndpointConfig{
			{Path: "/claim", Action: ActionClaims},
		},
		Sinks: make(map[string]SinkConfig),
	}
}

// DefaultClaims is appended when a claims endpoint configures none.
func DefaultClaims() []ClaimConfig {
	return []ClaimConfig{{Key: "group", Value: "ADMIN"}}
}

// DefaultRetry returns the default retry policy for sinks.
func DefaultRetry() *RetryConfig {
	return &RetryConfig{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsed:      5 * time.Second,
	}
}
