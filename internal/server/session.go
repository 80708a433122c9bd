// Package server drives the per-connection protocol state machine, mapping
// inbound event names to handlers over the registry and room directory.
package server

import (
	"encoding/json"
	"log"
	"time"
)

type handlerFunc func(c *Client, data json.RawMessage)

// sessionHandler owns the protocol logic sitting between the transport and
// the registry/rooms/fanout trio. Each inbound event is dispatched through an
// explicit table so individual handlers can be exercised without a live
// transport.
//
// A malformed payload is logged and dropped; it never tears down the
// connection or disturbs other connections.
type sessionHandler struct {
	registry *Registry
	rooms    *RoomDirectory
	fanout   *fanout

	room   map[string]handlerFunc
	legacy map[string]handlerFunc
}

func newSessionHandler(reg *Registry, rooms *RoomDirectory, fan *fanout) *sessionHandler {
	s := &sessionHandler{
		registry: reg,
		rooms:    rooms,
		fanout:   fan,
	}
	s.room = map[string]handlerFunc{
		EventSetName:     s.handleSetName,
		EventJoinRoom:    s.handleJoinRoom,
		EventLeaveRoom:   s.handleLeaveRoom,
		EventSendMessage: s.handleSendMessage,
		EventTyping: func(c *Client, data json.RawMessage) {
			s.relayTyping(c, data, EventTyping)
		},
		EventStopTyping: func(c *Client, data json.RawMessage) {
			s.relayTyping(c, data, EventStopTyping)
		},
	}
	s.legacy = map[string]handlerFunc{
		EventNewUser:           s.handleNewUser,
		EventSendMessageLegacy: s.handleLegacyMessage,
		EventTyping: func(c *Client, data json.RawMessage) {
			s.relayLegacyTyping(c, data, EventTyping)
		},
		EventStopTyping: func(c *Client, data json.RawMessage) {
			s.relayLegacyTyping(c, data, EventStopTyping)
		},
	}
	return s
}

// dispatch routes one inbound event to its handler. Unknown events are logged
// and dropped.
func (s *sessionHandler) dispatch(c *Client, event string, data json.RawMessage) {
	table := s.room
	if currentConfig().LegacyBroadcast {
		table = s.legacy
	}

	handler, ok := table[event]
	if !ok {
		log.Printf("Unknown event %q from %s; dropping", event, c.addr)
		return
	}
	handler(c, data)
}

// decode unmarshals an event payload, logging and rejecting malformed input.
func decode(c *Client, event string, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("Malformed %q payload from %s: %v", event, c.addr, err)
		return false
	}
	return true
}

func (s *sessionHandler) handleSetName(c *Client, data json.RawMessage) {
	var p SetNamePayload
	if !decode(c, EventSetName, data, &p) {
		return
	}

	s.registry.SetName(c.id, p.Name)

	// A rename while in a room re-announces the member list so peers pick
	// up the new name without a re-join.
	if roomID, ok := s.rooms.CurrentRoom(c.id); ok {
		s.fanout.toRoom(roomID, EventOnlineUsers, s.rooms.MembersOf(roomID))
	}
}

func (s *sessionHandler) handleJoinRoom(c *Client, data json.RawMessage) {
	var p JoinRoomPayload
	if !decode(c, EventJoinRoom, data, &p) {
		return
	}

	roomID := NormalizeRoomID(p.RoomID)
	if roomID == "" {
		log.Printf("join-room from %s without roomId; dropping", c.addr)
		return
	}

	if p.Name != "" {
		s.registry.SetName(c.id, p.Name)
	}

	cur, inRoom := s.rooms.CurrentRoom(c.id)
	rejoining := inRoom && cur == roomID

	// Leave-before-join keeps the one-room invariant and lets the old
	// room's members see the departure.
	if inRoom && !rejoining {
		s.leaveRoom(c, cur)
	}

	// Replay history before announcing the join, so the joiner sees prior
	// traffic first and its own join notice last. A re-join of the current
	// room skips the replay and the join notice; only the membership
	// broadcast repeats.
	cfg := currentConfig()
	if !rejoining && cfg.HistoryLimit != 0 {
		if hist := s.rooms.History(roomID); len(hist) > 0 {
			s.fanout.toConn(c.id, EventRoomHistory, hist)
		}
	}

	members := s.rooms.Join(c.id, roomID)
	name := s.registry.Name(c.id)

	if !rejoining && cfg.HistoryLimit != 0 {
		s.rooms.AppendHistory(roomID, systemMessage(name+" joined the room", name), cfg.HistoryLimit)
	}

	s.fanout.toRoom(roomID, EventUserJoined, RoomEventPayload{
		RoomID:   roomID,
		Username: name,
		Users:    members,
	})
	s.fanout.toRoom(roomID, EventOnlineUsers, members)

	log.Printf("Connection %s (%s) joined room %s; %d member(s)", c.id, name, roomID, len(members))
}

func (s *sessionHandler) handleLeaveRoom(c *Client, data json.RawMessage) {
	var p LeaveRoomPayload
	if !decode(c, EventLeaveRoom, data, &p) {
		return
	}
	s.leaveRoom(c, p.RoomID)
}

// leaveRoom removes the connection from roomID (or its current room when
// empty) and notifies the remaining members. Leaving a room the connection is
// not in is a silent no-op, and an emptied room is deleted without any event.
func (s *sessionHandler) leaveRoom(c *Client, roomID string) {
	name := s.registry.Name(c.id)

	roomID, members, ok := s.rooms.Leave(c.id, roomID)
	if !ok || len(members) == 0 {
		return
	}

	cfg := currentConfig()
	if cfg.HistoryLimit != 0 {
		s.rooms.AppendHistory(roomID, systemMessage(name+" left the room", name), cfg.HistoryLimit)
	}

	s.fanout.toRoom(roomID, EventUserLeft, RoomEventPayload{
		RoomID:   roomID,
		Username: name,
		Users:    members,
	})
	s.fanout.toRoom(roomID, EventOnlineUsers, members)
}

func (s *sessionHandler) handleSendMessage(c *Client, data json.RawMessage) {
	var p SendMessagePayload
	if !decode(c, EventSendMessage, data, &p) {
		return
	}

	cur, ok := s.rooms.CurrentRoom(c.id)
	if !ok {
		log.Printf("send-message from %s outside any room; dropping", c.addr)
		return
	}
	if p.RoomID != "" && NormalizeRoomID(p.RoomID) != cur {
		log.Printf("send-message from %s for room %q but current room is %q; dropping", c.addr, p.RoomID, cur)
		return
	}

	name := p.Username
	if name == "" {
		name = s.registry.Name(c.id)
	}

	msg := Message{
		Message:     p.Message,
		SenderID:    c.id,
		Username:    name,
		Time:        p.Time,
		Kind:        MessageKindUser,
		IsBroadcast: true,
	}

	cfg := currentConfig()
	if cfg.HistoryLimit != 0 {
		s.rooms.AppendHistory(cur, msg, cfg.HistoryLimit)
	}

	// Chat messages echo to the sender as well, so the sender and its peers
	// observe an identical event stream.
	s.fanout.toRoom(cur, EventReceiveMessage, msg)
}

func (s *sessionHandler) relayTyping(c *Client, data json.RawMessage, event string) {
	var p TypingPayload
	if !decode(c, event, data, &p) {
		return
	}

	cur, ok := s.rooms.CurrentRoom(c.id)
	if !ok {
		log.Printf("%s from %s outside any room; dropping", event, c.addr)
		return
	}
	if p.RoomID != "" && NormalizeRoomID(p.RoomID) != cur {
		log.Printf("%s from %s for room %q but current room is %q; dropping", event, c.addr, p.RoomID, cur)
		return
	}

	name := p.Username
	if name == "" {
		name = s.registry.Name(c.id)
	}

	// Typing state is transient; never echo it back to the sender.
	s.fanout.toRoomExceptSender(cur, c.id, event, TypingPayload{Username: name})
}

// disconnect runs the terminal transition for a connection: an implicit leave
// of its current room followed by registry removal. The hub guarantees this
// runs exactly once per connection, so a disconnect racing an explicit
// leave-room degrades to the silent no-op path.
func (s *sessionHandler) disconnect(c *Client) {
	if currentConfig().LegacyBroadcast {
		name, named := s.registry.NameIfSet(c.id)
		s.registry.Unregister(c.id)
		if named {
			s.fanout.toAll(EventUserLeftLegacy, TypingPayload{Username: name})
			s.fanout.toAll(EventOnlineUsers, s.registry.Names())
		}
		return
	}

	s.leaveRoom(c, "")
	s.registry.Unregister(c.id)
}

// Legacy global-broadcast mode: every event addresses the whole server
// rather than a room.

func (s *sessionHandler) handleNewUser(c *Client, data json.RawMessage) {
	var p SetNamePayload
	if !decode(c, EventNewUser, data, &p) {
		return
	}

	s.registry.SetName(c.id, p.Name)
	name := s.registry.Name(c.id)

	s.fanout.toAll(EventUserJoinedLegacy, TypingPayload{Username: name})
	s.fanout.toAll(EventOnlineUsers, s.registry.Names())
}

func (s *sessionHandler) handleLegacyMessage(c *Client, data json.RawMessage) {
	var p SendMessagePayload
	if !decode(c, EventSendMessageLegacy, data, &p) {
		return
	}

	name := p.Username
	if name == "" {
		name = s.registry.Name(c.id)
	}

	s.fanout.toAll(EventReceiveMessageLegacy, Message{
		Message:     p.Message,
		SenderID:    c.id,
		Username:    name,
		Time:        p.Time,
		Kind:        MessageKindUser,
		IsBroadcast: true,
	})
}

func (s *sessionHandler) relayLegacyTyping(c *Client, data json.RawMessage, event string) {
	var p TypingPayload
	if !decode(c, event, data, &p) {
		return
	}

	name := p.Username
	if name == "" {
		name = s.registry.Name(c.id)
	}

	s.fanout.toAllExceptSender(c.id, event, TypingPayload{Username: name})
}

func systemMessage(text, username string) Message {
	return Message{
		Message:  text,
		Username: username,
		Time:     time.Now().Format(time.RFC3339),
		Kind:     MessageKindSystem,
	}
}
