package webhook

import (
	"time"

	"github.com/mattjoyce/actiongate/internal/sink"
)

// SinkLookup resolves configured sinks by name.
type SinkLookup interface {
	Get(name string) (sink.Sink, bool)
}

// Config holds webhook server configuration.
type Config struct {
	Listen string
	// Secret is the shared HMAC key. When empty every endpoint answers 500.
	Secret         string
	ForwardTimeout time.Duration
	Endpoints      []EndpointConfig
}

// EndpointConfig defines a single webhook endpoint.
type EndpointConfig struct {
	// Path is the URL path for this webhook (e.g., "/claim")
	Path string

	// Action is one of claims, forward or notify
	Action string

	// Sink names the downstream collaborator for forward and notify
	Sink string

	// SignatureHeader is the HTTP header containing the t=..,v1=.. signature
	SignatureHeader string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64

	// Message is the SMS text for notify endpoints
	Message string

	// Claims are appended to the token for claims endpoints
	Claims []Claim
}

// Claim is a single key/value claim.
type Claim struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ClaimsResponse is returned by claims endpoints.
type ClaimsResponse struct {
	AppendClaims []Claim `json:"append_claims"`
}

// StatusResponse is returned by forward and notify endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id,omitempty"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultSignatureHeader = "zitadel-signature"
	DefaultForwardTimeout  = 10 * time.Second
)
