// Package server delivers typed events to a single connection, a room's
// members, or every connection through the fanout engine.
package server

import (
	"encoding/json"
	"log"
)

// fanout computes the recipient set for an event and hands the encoded frame
// to each recipient's send channel. Delivery is fire-and-forget: a recipient
// whose buffer is full simply misses the event, and no error reaches the
// sender.
//
// The clients map is the hub's own; fanout only ever runs on the hub
// goroutine, so no locking is needed.
type fanout struct {
	clients map[string]*Client
	rooms   *RoomDirectory
}

func newFanout(clients map[string]*Client, rooms *RoomDirectory) *fanout {
	return &fanout{clients: clients, rooms: rooms}
}

// encodeEvent marshals an event payload into a wire frame.
func encodeEvent(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error encoding %q payload: %v", event, err)
		return nil, false
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("Error framing %q event: %v", event, err)
		return nil, false
	}
	return frame, true
}

func (f *fanout) deliver(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		log.Printf("Send buffer full for %s; dropping event", c.addr)
	}
}

// toConn delivers an event to a single connection, if it is still live.
func (f *fanout) toConn(connID, event string, payload any) {
	c, ok := f.clients[connID]
	if !ok {
		return
	}
	if frame, ok := encodeEvent(event, payload); ok {
		f.deliver(c, frame)
	}
}

// toRoom delivers an event to every member of a room, sender included.
func (f *fanout) toRoom(roomID, event string, payload any) {
	f.toRoomExceptSender(roomID, "", event, payload)
}

// toRoomExceptSender delivers an event to every member of a room except the
// given sender. Used for typing indicators, where echoing the sender's own
// transient state back is undesirable.
func (f *fanout) toRoomExceptSender(roomID, senderID, event string, payload any) {
	memberIDs := f.rooms.MemberIDs(roomID)
	if len(memberIDs) == 0 {
		return
	}
	frame, ok := encodeEvent(event, payload)
	if !ok {
		return
	}
	for _, connID := range memberIDs {
		if connID == senderID {
			continue
		}
		if c, ok := f.clients[connID]; ok {
			f.deliver(c, frame)
		}
	}
}

// toAll delivers an event to every connection regardless of room. Only the
// legacy global-broadcast mode uses this path.
func (f *fanout) toAll(event string, payload any) {
	f.toAllExceptSender("", event, payload)
}

// toAllExceptSender delivers an event to every connection except the sender.
func (f *fanout) toAllExceptSender(senderID, event string, payload any) {
	frame, ok := encodeEvent(event, payload)
	if !ok {
		return
	}
	for connID, c := range f.clients {
		if connID == senderID {
			continue
		}
		f.deliver(c, frame)
	}
}
