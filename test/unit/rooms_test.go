package unit

import (
	"testing"

	"github.com/Tyrowin/livechat/internal/server"
)

func newDirectory() (*server.Registry, *server.RoomDirectory) {
	reg := server.NewRegistry()
	return reg, server.NewRoomDirectory(reg)
}

func TestNormalizeRoomID(t *testing.T) {
	cases := map[string]string{
		"abc123":    "ABC123",
		" Lobby ":   "LOBBY",
		"ALREADY":   "ALREADY",
		"  spaced ": "SPACED",
		"":          "",
	}
	for in, want := range cases {
		if got := server.NormalizeRoomID(in); got != want {
			t.Errorf("NormalizeRoomID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinCreatesRoomOnDemand(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")
	reg.SetName("conn-1", "Alice")

	members := dir.Join("conn-1", "r1")
	if len(members) != 1 || members[0] != "Alice" {
		t.Errorf("Expected members [Alice], got %v", members)
	}
	if room, ok := dir.CurrentRoom("conn-1"); !ok || room != "R1" {
		t.Errorf("Expected current room R1, got %q (in room: %v)", room, ok)
	}
}

func TestJoinIsIdempotentForMembership(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")
	reg.SetName("conn-1", "Alice")

	dir.Join("conn-1", "R1")
	members := dir.Join("conn-1", "R1")
	if len(members) != 1 {
		t.Errorf("Expected a single membership after re-join, got %v", members)
	}
}

func TestJoinSwitchesRoomsAtomically(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")
	reg.SetName("conn-1", "Alice")
	reg.Register("conn-2")
	reg.SetName("conn-2", "Bob")

	dir.Join("conn-1", "R1")
	dir.Join("conn-2", "R1")
	dir.Join("conn-1", "S1")

	if members := dir.MembersOf("R1"); len(members) != 1 || members[0] != "Bob" {
		t.Errorf("Expected R1 members [Bob], got %v", members)
	}
	if members := dir.MembersOf("S1"); len(members) != 1 || members[0] != "Alice" {
		t.Errorf("Expected S1 members [Alice], got %v", members)
	}
	if room, _ := dir.CurrentRoom("conn-1"); room != "S1" {
		t.Errorf("Expected conn-1 in S1, got %q", room)
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")

	dir.Join("conn-1", "R1")
	room, members, ok := dir.Leave("conn-1", "")
	if !ok {
		t.Fatal("Expected leave to succeed")
	}
	if room != "R1" {
		t.Errorf("Expected room R1, got %q", room)
	}
	if len(members) != 0 {
		t.Errorf("Expected empty member list, got %v", members)
	}
	if members := dir.MembersOf("R1"); len(members) != 0 {
		t.Errorf("Expected the room gone, got members %v", members)
	}
	if _, ok := dir.CurrentRoom("conn-1"); ok {
		t.Error("Expected no current room after leave")
	}
}

func TestLeaveWhenNotMember(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")

	if _, _, ok := dir.Leave("conn-1", ""); ok {
		t.Error("Leave with no current room must report false")
	}
	if _, _, ok := dir.Leave("conn-1", "GHOST"); ok {
		t.Error("Leave of an unknown room must report false")
	}

	reg.Register("conn-2")
	dir.Join("conn-2", "R1")
	if _, _, ok := dir.Leave("conn-1", "R1"); ok {
		t.Error("Leave of a room the connection is not in must report false")
	}
	if members := dir.MembersOf("R1"); len(members) != 1 {
		t.Errorf("Bystander membership must be untouched, got %v", members)
	}
}

func TestMembersOfUnknownRoomIsEmpty(t *testing.T) {
	_, dir := newDirectory()
	if members := dir.MembersOf("NOWHERE"); members == nil || len(members) != 0 {
		t.Errorf("Expected empty (non-nil) member list, got %v", members)
	}
}

func TestMemberNamesResolvedAtReadTime(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")
	reg.SetName("conn-1", "Alice")
	dir.Join("conn-1", "R1")

	reg.SetName("conn-1", "Alicia")
	members := dir.MembersOf("R1")
	if len(members) != 1 || members[0] != "Alicia" {
		t.Errorf("Expected rename visible in member list, got %v", members)
	}
}

func TestHistoryLifetimeTiedToRoom(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")

	// History for a room that does not exist is dropped.
	dir.AppendHistory("R1", server.Message{Message: "early"}, 10)
	if hist := dir.History("R1"); hist != nil {
		t.Errorf("Expected no history before the room exists, got %v", hist)
	}

	dir.Join("conn-1", "R1")
	dir.AppendHistory("R1", server.Message{Message: "hello"}, 10)
	if hist := dir.History("R1"); len(hist) != 1 || hist[0].Message != "hello" {
		t.Errorf("Expected one history entry, got %v", hist)
	}

	// Deleting the room deletes its history.
	dir.Leave("conn-1", "")
	dir.Join("conn-1", "R1")
	if hist := dir.History("R1"); len(hist) != 0 {
		t.Errorf("Expected history cleared with the room, got %v", hist)
	}
}

func TestHistoryTrim(t *testing.T) {
	reg, dir := newDirectory()
	reg.Register("conn-1")
	dir.Join("conn-1", "R1")

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		dir.AppendHistory("R1", server.Message{Message: text}, 3)
	}
	hist := dir.History("R1")
	if len(hist) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(hist))
	}
	if hist[0].Message != "c" || hist[2].Message != "e" {
		t.Errorf("Expected [c d e], got %v", hist)
	}
}
