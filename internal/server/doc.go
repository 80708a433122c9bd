// Package server implements the core of the live chat relay: the connection
// registry, the room directory, the event fanout engine, and the session
// protocol handler, plus the HTTP and WebSocket plumbing around them.
//
// All chat state is owned by a single hub goroutine; connections talk to it
// exclusively through channels, so join/leave/disconnect races resolve into a
// strict per-event order and the core needs no locks. The implementation is
// organized into specialized files for configuration, hub management,
// clients, routing, and HTTP handlers to keep the codebase maintainable and
// testable as the project grows.
package server
