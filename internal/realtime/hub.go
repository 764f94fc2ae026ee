// hub.go
//
// Business process backend for immigration and company formation services
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of bizflow.
// bizflow is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// bizflow is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with bizflow.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package realtime pushes events to connected dashboard clients grouped into rooms.
//
// Every connection joins its personal room (user:<id>) and may join application rooms
// (application:<id>) for chat and typing events. Delivery is best effort: nothing is
// stored for disconnected users, and a client whose send buffer is full misses the event.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/localnerve/bizflow/internal/models"
	"github.com/rs/zerolog"
)

const sendBuffer = 64

// Emitter pushes one event to every connection in a room
type Emitter interface {
	Emit(room, event string, data interface{}) error
}

// Envelope is the frame format in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// UserRoom names the personal room of a user
func UserRoom(userID string) string {
	return "user:" + userID
}

// ApplicationRoom names the chat room of an application
func ApplicationRoom(applicationID string) string {
	return "application:" + applicationID
}

// Client is one websocket connection registered with the hub
type Client struct {
	UserID string
	Role   models.Role

	send      chan []byte
	rooms     map[string]struct{}
	closeOnce sync.Once
}

// NewClient creates a client with an outbound buffer
func NewClient(userID string, role models.Role) *Client {
	return &Client{
		UserID: userID,
		Role:   role,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// Outbound exposes queued frames to the connection writer
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Hub tracks room membership for the local process
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

// Join adds c to room
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave removes c from room
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Remove drops c from every room and closes its outbound buffer
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()

	c.closeOnce.Do(func() { close(c.send) })
}

// RoomSize returns the number of local connections in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit marshals data once and queues it for every member of room
func (h *Hub) Emit(room, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return h.EmitRaw(room, event, raw)
}

// EmitRaw queues an already encoded payload
func (h *Hub) EmitRaw(room, event string, data json.RawMessage) error {
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- frame:
		default:
			h.log.Warn().
				Str("room", room).
				Str("event", event).
				Str("user_id", c.UserID).
				Msg("client send buffer full, dropping event")
		}
	}
	return nil
}
