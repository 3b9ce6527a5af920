package sink

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/mattjoyce/actiongate/internal/config"
)

// Registry holds sinks by name.
type Registry struct {
	sinks map[string]Sink
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Build constructs every configured sink.
func Build(cfgs map[string]config.SinkConfig, client *http.Client, logger *slog.Logger) (*Registry, error) {
	if client == nil {
		client = http.DefaultClient
	}
	r := NewRegistry()
	for name, sc := range cfgs {
		switch sc.Type {
		case config.SinkSplunk:
			r.Add(NewSplunk(name, sc, client, logger))
		case config.SinkTwilio:
			r.Add(NewTwilio(name, sc, client, logger))
		default:
			return nil, fmt.Errorf("sink %q: unsupported type %q", name, sc.Type)
		}
	}
	return r, nil
}

// Add registers s under its name, replacing any previous sink.
func (r *Registry) Add(s Sink) {
	r.sinks[s.Name()] = s
}

// Get returns the sink registered under name.
func (r *Registry) Get(name string) (Sink, bool) {
	s, ok := r.sinks[name]
	return s, ok
}

// Names returns registered sink names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
