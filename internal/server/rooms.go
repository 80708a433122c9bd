// Package server maps room identifiers to membership sets and bounded message
// history through the RoomDirectory type.
package server

import (
	"sort"
	"strings"
)

// RoomDirectory tracks which connections are in which room. Rooms are created
// implicitly on first join and deleted as soon as their last member leaves,
// so an empty room never lingers in the directory.
//
// Member lists are resolved to display names at read time via the Registry,
// so a name change is reflected by every later lookup without patching
// stored membership records.
//
// Like the Registry, the directory is owned by the hub goroutine and carries
// no lock.
type RoomDirectory struct {
	registry *Registry
	members  map[string]map[string]struct{}
	current  map[string]string
	history  map[string][]Message
}

// NewRoomDirectory creates an empty room directory resolving names through reg.
func NewRoomDirectory(reg *Registry) *RoomDirectory {
	return &RoomDirectory{
		registry: reg,
		members:  make(map[string]map[string]struct{}),
		current:  make(map[string]string),
		history:  make(map[string][]Message),
	}
}

// NormalizeRoomID canonicalizes a client-supplied room identifier. Room IDs
// are case-insensitive on the wire and stored upper-case.
func NormalizeRoomID(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

// Join adds a connection to a room, creating the room if needed, and returns
// the updated member list. If the connection is currently in a different
// room it is removed from that room first, so a connection is never a member
// of two rooms. Joining the current room again is a membership no-op.
func (d *RoomDirectory) Join(connID, roomID string) []string {
	roomID = NormalizeRoomID(roomID)

	if cur, ok := d.current[connID]; ok && cur != roomID {
		d.remove(connID, cur)
	}

	set, ok := d.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		d.members[roomID] = set
	}
	set[connID] = struct{}{}
	d.current[connID] = roomID

	return d.MembersOf(roomID)
}

// Leave removes a connection from the given room, or from its currently
// tracked room when roomID is empty. It returns the normalized room, the
// post-removal member list, and whether the connection was actually a member.
// The room record is deleted when the removal empties it.
func (d *RoomDirectory) Leave(connID, roomID string) (string, []string, bool) {
	roomID = NormalizeRoomID(roomID)
	if roomID == "" {
		cur, ok := d.current[connID]
		if !ok {
			return "", nil, false
		}
		roomID = cur
	}

	if !d.remove(connID, roomID) {
		return "", nil, false
	}
	return roomID, d.MembersOf(roomID), true
}

func (d *RoomDirectory) remove(connID, roomID string) bool {
	set, ok := d.members[roomID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}

	delete(set, connID)
	if d.current[connID] == roomID {
		delete(d.current, connID)
	}
	if len(set) == 0 {
		delete(d.members, roomID)
		delete(d.history, roomID)
	}
	return true
}

// MembersOf returns the display names of a room's members, sorted for stable
// output. Unknown rooms yield an empty list, never an error.
func (d *RoomDirectory) MembersOf(roomID string) []string {
	set := d.members[NormalizeRoomID(roomID)]
	names := make([]string, 0, len(set))
	for connID := range set {
		names = append(names, d.registry.Name(connID))
	}
	sort.Strings(names)
	return names
}

// MemberIDs returns the connection identifiers of a room's members.
func (d *RoomDirectory) MemberIDs(roomID string) []string {
	set := d.members[NormalizeRoomID(roomID)]
	ids := make([]string, 0, len(set))
	for connID := range set {
		ids = append(ids, connID)
	}
	return ids
}

// CurrentRoom returns the room a connection is currently in, if any.
func (d *RoomDirectory) CurrentRoom(connID string) (string, bool) {
	roomID, ok := d.current[connID]
	return roomID, ok
}

// AppendHistory records a message in a room's history, trimmed to the last
// limit entries when limit is positive. Messages for unknown rooms are
// dropped so history never outlives its room.
func (d *RoomDirectory) AppendHistory(roomID string, msg Message, limit int) {
	roomID = NormalizeRoomID(roomID)
	if _, ok := d.members[roomID]; !ok {
		return
	}

	hist := append(d.history[roomID], msg)
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	d.history[roomID] = hist
}

// History returns a copy of a room's message history.
func (d *RoomDirectory) History(roomID string) []Message {
	hist := d.history[NormalizeRoomID(roomID)]
	if len(hist) == 0 {
		return nil
	}
	out := make([]Message, len(hist))
	copy(out, hist)
	return out
}
