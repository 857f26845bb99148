// Package notify fans out change alerts to external sinks. The session
// produces alerts keyed by topic; sinks register for topic prefixes.
package notify

import (
	"fmt"
	"strings"
	"sync"
)

// Sink delivers one alert line for a topic.
type Sink func(topic, text string) error

// Registry routes alerts to the sink whose registered prefix matches the
// topic (e.g. "update_" catches every data-change topic).
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewRegistry creates an empty alert registry.
func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[string]Sink),
	}
}

// Register adds a sink for topics starting with prefix.
func (r *Registry) Register(prefix string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[prefix] = sink
}

// Notify finds the sink matching the topic prefix and calls it.
// Returns an error if no sink is registered for the prefix.
func (r *Registry) Notify(topic, text string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, sink := range r.sinks {
		if strings.HasPrefix(topic, prefix) {
			return sink(topic, text)
		}
	}
	return fmt.Errorf("no sink for topic: %s", topic)
}
