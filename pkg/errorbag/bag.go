package errorbag

import (
	"encoding/json"
	"slices"
	"sync"
)

// Bag maps field names to ordered lists of error messages.
type Bag struct {
	mu       sync.RWMutex
	messages map[string][]string
}

// New creates an empty Bag.
func New() *Bag {
	return &Bag{messages: make(map[string][]string)}
}

// Has reports whether field has at least one message.
func (b *Bag) Has(field string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages[field]) > 0
}

// Any reports whether any field has at least one message.
func (b *Bag) Any() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, msgs := range b.messages {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// Get returns the messages for field in insertion order, or nil.
func (b *Bag) Get(field string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msgs := b.messages[field]
	if len(msgs) == 0 {
		return nil
	}
	return slices.Clone(msgs)
}

// First returns the first message for field.
func (b *Bag) First(field string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msgs := b.messages[field]
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0], true
}

// Record replaces the whole mapping with errs.
func (b *Bag) Record(errs map[string][]string) {
	next := make(map[string][]string, len(errs))
	for field, msgs := range errs {
		next[field] = slices.Clone(msgs)
	}

	b.mu.Lock()
	b.messages = next
	b.mu.Unlock()
}

// Add appends a single message to field.
func (b *Bag) Add(field, msg string) {
	b.mu.Lock()
	b.messages[field] = append(b.messages[field], msg)
	b.mu.Unlock()
}

// Clear removes the given fields. With no arguments it removes every field.
func (b *Bag) Clear(fields ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(fields) == 0 {
		b.messages = make(map[string][]string)
		return
	}
	for _, field := range fields {
		delete(b.messages, field)
	}
}

// Forget removes every field. It is Clear with no arguments.
func (b *Bag) Forget() {
	b.Clear()
}

// All returns a copy of the mapping, skipping fields with no messages.
func (b *Bag) All() map[string][]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string][]string, len(b.messages))
	for field, msgs := range b.messages {
		if len(msgs) == 0 {
			continue
		}
		out[field] = slices.Clone(msgs)
	}
	return out
}

// Fields returns the sorted names of fields that have messages.
func (b *Bag) Fields() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fields := make([]string, 0, len(b.messages))
	for field, msgs := range b.messages {
		if len(msgs) > 0 {
			fields = append(fields, field)
		}
	}
	slices.Sort(fields)
	return fields
}

// Len returns the number of fields that have messages.
func (b *Bag) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, msgs := range b.messages {
		if len(msgs) > 0 {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the bag as {"field": ["message", ...]}.
func (b *Bag) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.All())
}
