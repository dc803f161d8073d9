// README: WebSocket hub; personal channels, ride rooms and inbound event routing.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"ryde/internal/presence"
	"ryde/internal/types"
)

// ErrNotConnected is returned when a personal emit finds no live session.
// Callers fall back to the push gateway.
var ErrNotConnected = errors.New("user has no live connection")

// Handler processes one inbound event from a connected client.
type Handler func(ctx context.Context, actor types.Actor, data json.RawMessage)

// ConnectHook runs when a user connects or disconnects. On connect it
// returns the ride rooms the session should immediately join.
type ConnectHook func(ctx context.Context, actor types.Actor) []types.ID

type Hub struct {
	mu    sync.RWMutex
	users map[types.ID]*client
	rooms map[types.ID]map[types.ID]*client

	presence *presence.Registry
	handlers map[string]Handler
	logger   *slog.Logger

	OnConnect    ConnectHook
	OnDisconnect func(ctx context.Context, actor types.Actor)
}

func NewHub(reg *presence.Registry, logger *slog.Logger) *Hub {
	return &Hub{
		users:    make(map[types.ID]*client),
		rooms:    make(map[types.ID]map[types.ID]*client),
		presence: reg,
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Handle registers the handler for a named inbound event. Not safe to call
// after the hub starts accepting connections.
func (h *Hub) Handle(event string, fn Handler) {
	h.handlers[event] = fn
}

// EmitToUser sends an event on a user's personal channel.
func (h *Hub) EmitToUser(userID types.ID, event string, payload any) error {
	h.mu.RLock()
	c, ok := h.users[userID]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	c.enqueue(envelope{Event: event, Data: payload})
	return nil
}

// EmitToRoom sends an event to every member of a ride room. Delivery is
// best-effort; a full client buffer drops the frame rather than blocking.
func (h *Hub) EmitToRoom(roomID types.ID, event string, payload any) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()
	for _, c := range members {
		c.enqueue(envelope{Event: event, Data: payload})
	}
}

// JoinRoom adds the user's live session to a ride room, if connected.
func (h *Hub) JoinRoom(userID, roomID types.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.users[userID]
	if !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[types.ID]*client)
	}
	h.rooms[roomID][userID] = c
	c.roomIDs[roomID] = struct{}{}
}

func (h *Hub) add(c *client) {
	if prev, superseded := h.presence.Add(c.actor.ID, c.id); superseded {
		h.mu.RLock()
		old, ok := h.users[c.actor.ID]
		h.mu.RUnlock()
		if ok && old.id == prev {
			old.close()
		}
	}
	h.mu.Lock()
	h.users[c.actor.ID] = c
	h.mu.Unlock()

	if h.OnConnect != nil {
		for _, roomID := range h.OnConnect(context.Background(), c.actor) {
			h.JoinRoom(c.actor.ID, roomID)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if cur, ok := h.users[c.actor.ID]; ok && cur.id == c.id {
		delete(h.users, c.actor.ID)
	}
	for roomID := range c.roomIDs {
		if members, ok := h.rooms[roomID]; ok {
			if cur, ok := members[c.actor.ID]; ok && cur.id == c.id {
				delete(members, c.actor.ID)
			}
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mu.Unlock()

	if h.presence.Remove(c.actor.ID, c.id) && h.OnDisconnect != nil {
		h.OnDisconnect(context.Background(), c.actor)
	}
}

func (h *Hub) dispatch(ctx context.Context, actor types.Actor, ev inbound) {
	fn, ok := h.handlers[ev.Event]
	if !ok {
		h.logger.Warn("unknown ws event", "event", ev.Event, "user", actor.ID)
		return
	}
	fn(ctx, actor, ev.Data)
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
