package wstrade

import "sync"

// headerSet holds the custom headers merged into every outgoing call
// made by one session.
type headerSet struct {
	mu     sync.RWMutex
	values map[string]string
}

func newHeaderSet() *headerSet {
	return &headerSet{values: make(map[string]string)}
}

func (h *headerSet) add(name, value string) {
	h.mu.Lock()
	h.values[name] = value
	h.mu.Unlock()
}

func (h *headerSet) remove(name string) {
	h.mu.Lock()
	delete(h.values, name)
	h.mu.Unlock()
}

func (h *headerSet) clear() {
	h.mu.Lock()
	h.values = make(map[string]string)
	h.mu.Unlock()
}

func (h *headerSet) snapshot() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]string, len(h.values))
	for k, v := range h.values {
		out[k] = v
	}
	return out
}

// HeadersAPI manages the extra headers a session sends with every call.
type HeadersAPI struct {
	s *Session
}

// Add sets a custom header, replacing any previous value for name.
// It applies to calls issued after the mutation only.
func (h *HeadersAPI) Add(name, value string) {
	h.s.headers.add(name, value)
}

// Remove deletes a custom header.
func (h *HeadersAPI) Remove(name string) {
	h.s.headers.remove(name)
}

// Clear removes every custom header.
func (h *HeadersAPI) Clear() {
	h.s.headers.clear()
}

// Values returns a copy of the current custom header set.
func (h *HeadersAPI) Values() map[string]string {
	return h.s.headers.snapshot()
}
