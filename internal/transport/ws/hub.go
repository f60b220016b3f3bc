// Package ws carries the session protocol over gorilla websockets.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/session"
)

// Hub tracks connected clients and the rooms they have joined
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[model.RoomID]map[string]*Client
	logger  *slog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[model.RoomID]map[string]*Client),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client registered",
		slog.String("conn_id", c.id),
		slog.String("player_id", string(c.playerID)),
		slog.Int("total_clients", total))
}

// Unregister removes a client from the hub and every room it joined.
// Other room members are not told; a player comes back by rejoining.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for room, members := range h.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	h.logger.Info("ws client unregistered",
		slog.String("conn_id", c.id),
		slog.String("player_id", string(c.playerID)),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", total))
}

// Join puts a registered connection in room. Unknown connections are ignored.
func (h *Hub) Join(room model.RoomID, conn session.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[conn.ID()]
	if !ok {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.id] = c
}

// InRoom reports whether conn has joined room
func (h *Hub) InRoom(room model.RoomID, conn session.Conn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][conn.ID()]
	return ok
}

// Broadcast sends an event to every member of room
func (h *Hub) Broadcast(room model.RoomID, event string, payload any) {
	h.broadcast(room, "", event, payload)
}

// BroadcastOthers sends an event to every member of room except conn
func (h *Hub) BroadcastOthers(room model.RoomID, conn session.Conn, event string, payload any) {
	h.broadcast(room, conn.ID(), event, payload)
}

func (h *Hub) broadcast(room model.RoomID, except string, event string, payload any) {
	msg, err := encodeEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event", slog.String("event", event), slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for id, c := range h.rooms[room] {
		if id == except {
			continue
		}
		if !c.enqueue(msg) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("ws broadcast partial failure",
			slog.String("room_id", string(room)),
			slog.String("event", event),
			slog.Int("dropped", dropped))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[model.RoomID]map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", len(clients)))
}
