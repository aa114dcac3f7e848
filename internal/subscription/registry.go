// Package subscription tracks which handlers are interested in which topics.
//
// The registry is the source of truth for replay: after every reconnect the
// connection manager subscribes exactly Topics() on the wire.
package subscription

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wildcastradio/radiolink/internal/auth"
)

// Handle identifies one registration.
type Handle struct {
	ID    uuid.UUID
	Topic string
}

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool {
	return h.ID == uuid.Nil
}

// Entry is one handler registered on one topic.
type Entry struct {
	Handle     Handle
	Topic      string
	Handler    Handler
	Credential auth.Credential
}

// Registry maps topics to their handlers. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	topics map[string][]Entry
	order  []string // topics in first-subscribe order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string][]Entry),
	}
}

// Add registers handler on topic. Adding the same handler instance to the same
// topic again returns the existing handle and false.
func (r *Registry) Add(topic string, handler Handler, cred auth.Credential) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.topics[topic]
	for _, e := range entries {
		if sameHandler(e.Handler, handler) {
			return e.Handle, false
		}
	}

	h := Handle{ID: uuid.New(), Topic: topic}
	if len(entries) == 0 {
		r.order = append(r.order, topic)
	}
	r.topics[topic] = append(entries, Entry{
		Handle:     h,
		Topic:      topic,
		Handler:    handler,
		Credential: cred,
	})
	return h, true
}

// Remove unregisters h. topicEmpty is true when h was the topic's last
// handler; ok is false when h was not registered.
func (r *Registry) Remove(h Handle) (topicEmpty, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.topics[h.Topic]
	for i, e := range entries {
		if e.Handle.ID != h.ID {
			continue
		}

		remaining := make([]Entry, 0, len(entries)-1)
		remaining = append(remaining, entries[:i]...)
		remaining = append(remaining, entries[i+1:]...)
		if len(remaining) > 0 {
			r.topics[h.Topic] = remaining
			return false, true
		}

		delete(r.topics, h.Topic)
		r.dropTopic(h.Topic)
		return true, true
	}
	return false, false
}

func (r *Registry) dropTopic(topic string) {
	for i, t := range r.order {
		if t == topic {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			return
		}
	}
}

// Handlers returns a copy of the entries registered on topic.
func (r *Registry) Handlers(topic string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.topics[topic]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Has reports whether any handler is registered on topic.
func (r *Registry) Has(topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[topic]) > 0
}

// Topics returns the subscribed topics in first-subscribe order.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Snapshot returns every entry, grouped by topic, as of the call.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, t := range r.order {
		out = append(out, r.topics[t]...)
	}
	return out
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, entries := range r.topics {
		n += len(entries)
	}
	return n
}

// Clear removes every registration.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.topics = make(map[string][]Entry)
	r.order = nil
}
