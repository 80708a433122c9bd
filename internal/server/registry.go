// Package server tracks live connections and their display names through the
// Registry type.
package server

import (
	"sort"
	"strings"
)

// DefaultName is the display name used for connections that never set one.
const DefaultName = "Anonymous"

// Registry maps connection identifiers to display names. Every operation is
// total: lookups for unknown connections fall back to DefaultName and
// mutations of unknown connections are harmless.
//
// The registry carries no lock of its own. It is owned by the hub goroutine,
// which is the only writer and reader during normal operation.
type Registry struct {
	conns map[string]struct{}
	names map[string]string
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]struct{}),
		names: make(map[string]string),
	}
}

// Register records a connection as live. Names are set separately; a freshly
// registered connection resolves to DefaultName.
func (r *Registry) Register(connID string) {
	r.conns[connID] = struct{}{}
}

// SetName updates the display name for a connection. Empty or blank names are
// ignored so the connection keeps resolving to its previous name (or the
// default).
func (r *Registry) SetName(connID, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	r.names[connID] = name
}

// Name resolves the display name for a connection, defaulting to DefaultName
// for connections that never set one (or were never registered).
func (r *Registry) Name(connID string) string {
	if name, ok := r.names[connID]; ok {
		return name
	}
	return DefaultName
}

// NameIfSet resolves the display name for a connection only if it was
// explicitly set.
func (r *Registry) NameIfSet(connID string) (string, bool) {
	name, ok := r.names[connID]
	return name, ok
}

// Names returns the display names of all connections that set one, sorted for
// stable output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.names))
	for _, name := range r.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a connection and its name. Safe to call for unknown
// connections.
func (r *Registry) Unregister(connID string) {
	delete(r.conns, connID)
	delete(r.names, connID)
}
