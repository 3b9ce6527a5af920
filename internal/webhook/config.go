package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/actiongate/internal/config"
)

// FromGlobalConfig converts config.Config to webhook.Config.
// Resolves per-endpoint signature headers and parses max body sizes.
func FromGlobalConfig(gc *config.Config) (Config, error) {
	if gc == nil {
		return Config{}, fmt.Errorf("config is nil")
	}

	cfg := Config{
		Listen:         gc.Service.Listen,
		Secret:         gc.Signing.Secret,
		ForwardTimeout: gc.Service.ForwardTimeout,
		Endpoints:      make([]EndpointConfig, len(gc.Endpoints)),
	}

	for i, ep := range gc.Endpoints {
		// Parse max body size (e.g., "1MB", "2048576")
		maxBodySize, err := parseMaxBodySize(ep.MaxBodySize)
		if err != nil {
			return Config{}, fmt.Errorf("webhook endpoint %q: invalid max_body_size %q: %w", ep.Path, ep.MaxBodySize, err)
		}

		claims := make([]Claim, len(ep.Claims))
		for j, c := range ep.Claims {
			claims[j] = Claim{Key: c.Key, Value: c.Value}
		}

		cfg.Endpoints[i] = EndpointConfig{
			Path:            ep.Path,
			Action:          ep.Action,
			Sink:            ep.Sink,
			SignatureHeader: gc.SignatureHeaderFor(ep),
			MaxBodySize:     maxBodySize,
			Message:         ep.Message,
			Claims:          claims,
		}
	}

	return cfg, nil
}

// parseMaxBodySize parses size strings like "1MB", "64KB", "1048576" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}

	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}
