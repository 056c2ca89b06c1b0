package agent

import (
	"strings"
	"sync"
)

// State is the shared key/value record a pipeline's agents read and write.
// An agent with an output key writes its final text under that key; later
// agents pull it in through {key} placeholders in their instructions.
type State struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewState creates an empty state.
func NewState() *State {
	return &State{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value under key, overwriting any previous value.
func (s *State) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Snapshot returns a copy of all values.
func (s *State) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Render substitutes {key} placeholders in the template with stored values.
// Placeholders with no stored value are left as-is, so a missing upstream
// output is visible in the rendered prompt instead of silently vanishing.
func (s *State) Render(template string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rendered := template
	for k, v := range s.values {
		rendered = strings.ReplaceAll(rendered, "{"+k+"}", v)
	}
	return rendered
}
