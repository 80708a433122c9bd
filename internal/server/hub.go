// Package server coordinates client registration, protocol event dispatch,
// and connection cleanup for the live chat relay via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// inboundEvent is one decoded protocol event awaiting dispatch, tagged with
// the connection it arrived on.
type inboundEvent struct {
	client *Client
	name   string
	data   json.RawMessage
}

// Hub owns all mutable chat state: the connection registry, the room
// directory, and the set of live clients. A single goroutine (Run) consumes
// the register, unregister, and event channels and handles each item to
// completion before the next, so no other connection ever observes a torn
// intermediate state and the core needs no locks.
type Hub struct {
	clients  map[string]*Client
	registry *Registry
	rooms    *RoomDirectory
	session  *sessionHandler

	register   chan *Client
	unregister chan *Client
	events     chan inboundEvent

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates and initializes a new Hub instance with its registry, room
// directory, and session handler wired together. The returned Hub is ready
// to manage WebSocket connections once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	clients := make(map[string]*Client)
	registry := NewRegistry()
	rooms := NewRoomDirectory(registry)
	fan := newFanout(clients, rooms)

	return &Hub{
		clients:    clients,
		registry:   registry,
		rooms:      rooms,
		session:    newSessionHandler(registry, rooms, fan),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan inboundEvent, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and protocol event dispatch. This method should be called
// in a separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.handleRegister(client)

		case client := <-h.unregister:
			if client == nil {
				log.Printf("Received nil client unregistration; skipping")
				continue
			}
			h.handleUnregister(client)

		case ev := <-h.events:
			// A queued event can outlive its connection when an
			// unregister raced ahead of it on another path; those
			// are dropped rather than dispatched for a dead session.
			if _, ok := h.clients[ev.client.id]; !ok {
				continue
			}
			h.session.dispatch(ev.client, ev.name, ev.data)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.clients[client.id] = client
	h.registry.Register(client.id)
	log.Printf("Client %s registered from %s. Total clients: %d", client.id, client.addr, len(h.clients))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handleUnregister runs the terminal cleanup for a connection exactly once:
// the session's implicit leave (with its departure broadcasts), registry
// removal, then teardown of the send channel. Repeated unregisters for the
// same client are no-ops.
func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}

	h.session.disconnect(client)
	delete(h.clients, client.id)
	close(client.send)
	log.Printf("Client %s unregistered from %s. Total clients: %d", client.id, client.addr, len(h.clients))
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	count := 0
	for _, client := range h.clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing client connection from %s: %v", client.addr, err)
			}
		}
		count++
	}

	log.Printf("Closed %d client connections", count)
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

var (
	hub     = NewHub()
	hubOnce sync.Once
)

// StartHub starts the global hub's event loop. Safe to call more than once;
// only the first call launches the loop.
func StartHub() {
	hubOnce.Do(func() {
		go hub.Run()
		log.Println("Hub started and ready to manage WebSocket connections")
	})
}

// GetHub returns the global hub instance for shutdown coordination.
func GetHub() *Hub {
	return hub
}
