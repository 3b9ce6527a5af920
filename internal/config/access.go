package config

import "sort"

// Endpoint returns the endpoint configured for path.
func (c *Config) Endpoint(path string) (EndpointConfig, bool) {
	for _, ep := range c.Endpoints {
		if ep.Path == path {
			return ep, true
		}
	}
	return EndpointConfig{}, false
}

// SinkNames returns configured sink names in sorted order.
func (c *Config) SinkNames() []string {
	return sortedKeys(c.Sinks)
}

// SignatureHeaderFor returns the header an endpoint reads its signature from.
func (c *Config) SignatureHeaderFor(ep EndpointConfig) string {
	if ep.SignatureHeader != "" {
		return ep.SignatureHeader
	}
	return c.Signing.Header
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
