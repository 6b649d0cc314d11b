// Package presence maps published peer identifiers to live connection ids.
//
// The registry is purely in-memory: a restart forgets every entry and
// connected clients are expected to re-register.
package presence

import (
	"strings"
	"sync"
	"unicode"
)

// NormalizeID strips all whitespace from an identifier. Identifiers are
// always compared in normalized form, so " a b " and "ab" name the same
// peer.
func NormalizeID(id string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, id)
}

// Registry is the process-wide identifier -> connection id mapping.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]string)}
}

// Register claims id for connID and returns the normalized identifier.
//
// An identifier that is empty after normalization is ignored (ok=false).
// Registering an identifier that is already claimed overwrites the prior
// entry: last writer wins, and the displaced connection is not notified.
func (r *Registry) Register(id, connID string) (normalized string, ok bool) {
	normalized = NormalizeID(id)
	if normalized == "" {
		return "", false
	}

	r.mu.Lock()
	r.byID[normalized] = connID
	r.mu.Unlock()
	return normalized, true
}

// Resolve returns the connection id currently claiming id.
func (r *Registry) Resolve(id string) (connID string, ok bool) {
	normalized := NormalizeID(id)

	r.mu.RLock()
	connID, ok = r.byID[normalized]
	r.mu.RUnlock()
	return connID, ok
}

// Unregister removes the entry for id, but only if it still points at
// connID. A connection whose identifier was displaced by a later
// registration must not tear down the new owner's entry on disconnect.
func (r *Registry) Unregister(id, connID string) bool {
	normalized := NormalizeID(id)
	if normalized == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.byID[normalized]
	if !ok || owner != connID {
		return false
	}
	delete(r.byID, normalized)
	return true
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
