package unit

import (
	"testing"
	"time"

	"github.com/Tyrowin/livechat/internal/server"
)

// TestNewHub verifies that NewHub returns a properly initialized Hub whose
// channels accept traffic once the loop runs.
func TestNewHub(t *testing.T) {
	hub := server.NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Error("Hub did not accept a registration")
	}
}

// TestHubChannels verifies that the register and unregister channels are
// accessible through their getter methods.
func TestHubChannels(t *testing.T) {
	hub := server.NewHub()

	if hub.GetRegisterChan() == nil {
		t.Error("Register channel is nil")
	}
	if hub.GetUnregisterChan() == nil {
		t.Error("Unregister channel is nil")
	}
}

// TestHubShutdownWithoutClients verifies a hub with no connections shuts
// down promptly.
func TestHubShutdownWithoutClients(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

// TestHubUnregisterUnknownClient verifies that unregistering a client that
// was never registered does not disturb the hub.
func TestHubUnregisterUnknownClient(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	client := server.NewClient(nil, hub, "127.0.0.1:12345")
	select {
	case hub.GetUnregisterChan() <- client:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Hub did not accept the unregister")
	}

	// The loop must still be serviceable afterwards.
	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Error("Hub stopped servicing its channels")
	}
}

// TestHubIgnoresNilUnregister verifies that a nil on the unregister channel
// is skipped without killing the loop.
func TestHubIgnoresNilUnregister(t *testing.T) {
	hub := server.NewHub()
	go hub.Run()
	defer func() { _ = hub.Shutdown(time.Second) }()

	select {
	case hub.GetUnregisterChan() <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Hub did not accept the unregister")
	}

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Error("Hub stopped servicing its channels after a nil unregister")
	}
}

// TestNewClient verifies that NewClient returns a Client with an assigned
// connection identifier and a live send channel.
func TestNewClient(t *testing.T) {
	hub := server.NewHub()

	client := server.NewClient(nil, hub, "127.0.0.1:12345")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.ID() == "" {
		t.Error("Client has no connection identifier")
	}
	if client.GetSendChan() == nil {
		t.Error("Client send channel is nil")
	}

	other := server.NewClient(nil, hub, "127.0.0.1:12346")
	if other.ID() == client.ID() {
		t.Error("Connection identifiers must be unique")
	}

	select {
	case <-client.GetSendChan():
		t.Error("Expected empty send channel but received a frame")
	case <-time.After(10 * time.Millisecond):
	}
}
