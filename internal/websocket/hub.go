package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"relay-service/pkg/logger"
)

var ErrClientDisconnected = errors.New("client disconnected")

// Presence is notified when a user gains its first connection or loses
// its last one. A nil Presence disables the notifications.
type Presence interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// ClientMessage pairs an inbound frame with the connection it arrived on.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

// Hub owns every live connection and the room membership map. All
// mutation funnels through the Run loop, so joins, leaves and relays are
// serialized; membership is the only shared mutable state and the lock
// guards readers outside the loop.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Room membership, keyed by RoomName(userID)
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	inbound    chan *ClientMessage

	presence Presence

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex

	logger *logger.Logger
}

func NewHub(presence Presence, log *logger.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *ClientMessage),
		presence:   presence,
		ctx:        ctx,
		cancel:     cancel,
		logger:     log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.inbound:
			h.relay(msg)

		case <-h.ctx.Done():
			h.logger.Info("Relay hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

// RoomSize reports current membership of a room. Zero means the room does
// not exist.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.joinRoomLocked(client)
	h.mu.Unlock()

	h.logger.Info("Client registered", "clientID", client.id, "userID", client.userID, "room", RoomName(client.userID))

	if h.presence != nil {
		if err := h.presence.SetUserOnline(h.ctx, client.userID); err != nil {
			h.logger.Error("Failed to set user online", "userID", client.userID, "error", err)
		}
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	room := client.room
	h.leaveRoomLocked(client)
	_, roomAlive := h.rooms[room]
	h.mu.Unlock()

	client.closeSendChannel()
	h.logger.Info("Client unregistered", "clientID", client.id, "userID", client.userID)

	// The room is the user: an empty room means the last connection for
	// that identity is gone.
	if h.presence != nil && !roomAlive {
		if err := h.presence.SetUserOffline(h.ctx, client.userID); err != nil {
			h.logger.Error("Failed to set user offline", "userID", client.userID, "error", err)
		}
	}
}

// joinRoomLocked adds the client to its identity's room. Idempotent; a
// client is a member of at most one room.
func (h *Hub) joinRoomLocked(client *Client) {
	room := RoomName(client.userID)
	if client.room != "" && client.room != room {
		h.leaveRoomLocked(client)
	}

	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
	client.room = room
}

// leaveRoomLocked is a no-op for clients that never joined. Empty rooms
// are removed; absence of members is equivalent to non-existence.
func (h *Hub) leaveRoomLocked(client *Client) {
	if client.room == "" {
		return
	}
	if members, ok := h.rooms[client.room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, client.room)
		}
	}
	client.room = ""
}

// relay validates an inbound event and fans the stamped envelope out to
// every member of the sender's room, the sender included.
func (h *Hub) relay(msg *ClientMessage) {
	var event MessageEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil || event.Text == nil {
		// Malformed payloads are dropped without disturbing the sender.
		h.logger.Debug("Dropping malformed message", "clientID", msg.Client.id, "userID", msg.Client.userID)
		return
	}

	envelope := NewEnvelope(*event.Text, msg.Client.username)
	data, err := json.Marshal(envelope)
	if err != nil {
		h.logger.Error("Failed to marshal envelope", "clientID", msg.Client.id, "error", err)
		return
	}

	// Snapshot membership so the fan-out never observes a half-updated
	// set.
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[msg.Client.room]))
	for member := range h.rooms[msg.Client.room] {
		members = append(members, member)
	}
	h.mu.RUnlock()

	for _, member := range members {
		if err := member.enqueue(data); err != nil {
			h.logger.Warn("Dropping message for unreachable client", "clientID", member.id, "userID", member.userID)
		}
	}
}
