// Package unit contains unit tests for individual components of the live
// chat relay.
//
// These tests focus on testing specific functions and methods in isolation,
// using the exported API of the server package without a live transport.
package unit

import (
	"testing"

	"github.com/Tyrowin/livechat/internal/server"
)

func TestRegistryDefaultsToAnonymous(t *testing.T) {
	reg := server.NewRegistry()

	reg.Register("conn-1")
	if name := reg.Name("conn-1"); name != server.DefaultName {
		t.Errorf("Expected %q for unnamed connection, got %q", server.DefaultName, name)
	}
	if name := reg.Name("never-registered"); name != server.DefaultName {
		t.Errorf("Expected %q for unknown connection, got %q", server.DefaultName, name)
	}
	if _, ok := reg.NameIfSet("conn-1"); ok {
		t.Error("NameIfSet must report false before a name is set")
	}
}

func TestRegistrySetName(t *testing.T) {
	reg := server.NewRegistry()
	reg.Register("conn-1")

	reg.SetName("conn-1", "Alice")
	if name := reg.Name("conn-1"); name != "Alice" {
		t.Errorf("Expected Alice, got %q", name)
	}

	reg.SetName("conn-1", "Alicia")
	if name := reg.Name("conn-1"); name != "Alicia" {
		t.Errorf("Expected Alicia after rename, got %q", name)
	}
}

func TestRegistryIgnoresBlankNames(t *testing.T) {
	reg := server.NewRegistry()
	reg.Register("conn-1")
	reg.SetName("conn-1", "Alice")

	reg.SetName("conn-1", "")
	reg.SetName("conn-1", "   ")
	if name := reg.Name("conn-1"); name != "Alice" {
		t.Errorf("Blank names must be ignored, got %q", name)
	}

	reg.SetName("conn-2", "")
	if name := reg.Name("conn-2"); name != server.DefaultName {
		t.Errorf("Expected %q after blank name, got %q", server.DefaultName, name)
	}
}

func TestRegistryNamesListsNamedConnectionsSorted(t *testing.T) {
	reg := server.NewRegistry()
	reg.Register("conn-1")
	reg.Register("conn-2")
	reg.Register("conn-3")
	reg.SetName("conn-2", "Zoe")
	reg.SetName("conn-1", "Alice")

	names := reg.Names()
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Zoe" {
		t.Errorf("Expected [Alice Zoe], got %v", names)
	}
}

func TestRegistryUnregister(t *testing.T) {
	reg := server.NewRegistry()
	reg.Register("conn-1")
	reg.SetName("conn-1", "Alice")

	reg.Unregister("conn-1")
	if name := reg.Name("conn-1"); name != server.DefaultName {
		t.Errorf("Expected name cleared on unregister, got %q", name)
	}
	if names := reg.Names(); len(names) != 0 {
		t.Errorf("Expected empty name list, got %v", names)
	}

	// Unregistering twice is harmless.
	reg.Unregister("conn-1")
}
