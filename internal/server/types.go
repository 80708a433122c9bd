// Package server defines the wire envelope and event payload types exchanged
// between clients and the relay.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound event names accepted from clients in room mode.
const (
	EventSetName     = "set-name"
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
)

// Inbound event names accepted in legacy global-broadcast mode.
const (
	EventNewUser           = "new_user"
	EventSendMessageLegacy = "send_message"
)

// Outbound event names emitted to clients.
const (
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventReceiveMessage = "receive-message"
	EventOnlineUsers    = "online_users"
	EventRoomHistory    = "room-history"

	EventUserJoinedLegacy     = "user_joined"
	EventUserLeftLegacy       = "user_left"
	EventReceiveMessageLegacy = "receive_message"
)

// Message kinds.
const (
	MessageKindUser   = "user"
	MessageKindSystem = "system"
)

// Envelope is the framing for every message on the wire, in both directions:
// an event name plus an event-specific JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SetNamePayload carries a display-name change.
type SetNamePayload struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId,omitempty"`
}

// JoinRoomPayload carries a room join request. Name is optional and, when
// present, is applied before the join.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name,omitempty"`
}

// LeaveRoomPayload carries a room leave request. An empty RoomID means the
// connection's currently tracked room.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId,omitempty"`
}

// SendMessagePayload carries an outgoing chat message from a client. Time is
// formatted by the sender's clock and passed through verbatim.
type SendMessagePayload struct {
	Message  string `json:"message"`
	RoomID   string `json:"roomId"`
	Username string `json:"username,omitempty"`
	Time     string `json:"time,omitempty"`
}

// TypingPayload carries a typing or stop-typing indicator. It doubles as the
// outbound payload, where only Username is set.
type TypingPayload struct {
	Username string `json:"username,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
}

// RoomEventPayload announces a membership change to a room, including the
// post-change member list as display names.
type RoomEventPayload struct {
	RoomID   string   `json:"roomId"`
	Username string   `json:"username"`
	Users    []string `json:"users"`
}

// Message is a delivered chat message. The same shape is used for the
// receive-message payload and for entries in a room's history.
type Message struct {
	Message     string `json:"message"`
	SenderID    string `json:"senderId,omitempty"`
	Username    string `json:"username"`
	Time        string `json:"time,omitempty"`
	Kind        string `json:"kind,omitempty"`
	IsBroadcast bool   `json:"isBroadcast,omitempty"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
