package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"pipal/internal/middleware"
	"pipal/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Max connections per user across all rooms
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// PresenceFunc is called when a viewer joins or leaves a room.
type PresenceFunc func(ctx context.Context, sessionID, userID uuid.UUID)

type room struct {
	postID  uuid.UUID
	clients map[*Client]struct{}
}

// LiveHub groups websocket clients into rooms, one per live session.
type LiveHub struct {
	mu         sync.RWMutex
	rooms      map[uuid.UUID]*room
	perUser    map[uuid.UUID]int
	totalConns int

	onJoin  PresenceFunc
	onLeave PresenceFunc
}

// NewLiveHub creates an empty hub.
func NewLiveHub() *LiveHub {
	return &LiveHub{
		rooms:   make(map[uuid.UUID]*room),
		perUser: make(map[uuid.UUID]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *LiveHub) Name() string { return "live hub" }

// SetPresenceCallbacks installs join and leave hooks. Call before serving connections.
func (h *LiveHub) SetPresenceCallbacks(onJoin, onLeave PresenceFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = onJoin
	h.onLeave = onLeave
}

// Register adds a connection to the room of sessionID. postID lets vote activity
// on the session's post reach the room.
func (h *LiveHub) Register(sessionID, postID, userID uuid.UUID, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}
	if h.perUser[userID] >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	r, ok := h.rooms[sessionID]
	if !ok {
		r = &room{postID: postID, clients: make(map[*Client]struct{})}
		h.rooms[sessionID] = r
	}

	client := newClient(h, conn, userID, sessionID)
	r.clients[client] = struct{}{}
	h.perUser[userID]++
	h.totalConns++
	onJoin := h.onJoin
	h.mu.Unlock()

	observability.LiveRoomConnections.Inc()
	if onJoin != nil {
		onJoin(context.Background(), sessionID, userID)
	}
	return client, nil
}

// UnregisterClient removes c from its room. Repeated calls are harmless.
func (h *LiveHub) UnregisterClient(c *Client) {
	h.mu.Lock()
	removed := false
	if r, ok := h.rooms[c.SessionID]; ok {
		if _, exists := r.clients[c]; exists {
			delete(r.clients, c)
			h.totalConns--
			if h.perUser[c.UserID]--; h.perUser[c.UserID] <= 0 {
				delete(h.perUser, c.UserID)
			}
			removed = true
		}
		if len(r.clients) == 0 {
			delete(h.rooms, c.SessionID)
		}
	}
	onLeave := h.onLeave
	h.mu.Unlock()

	if !removed {
		return
	}
	observability.LiveRoomConnections.Dec()
	if onLeave != nil {
		onLeave(context.Background(), c.SessionID, c.UserID)
	}
}

// RoomSize reports how many connections are in the session's room.
func (h *LiveHub) RoomSize(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[sessionID]; ok {
		return len(r.clients)
	}
	return 0
}

// BroadcastRoom sends message to every connection in the session's room.
func (h *LiveHub) BroadcastRoom(sessionID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[sessionID]; ok {
		for c := range r.clients {
			c.TrySend(message)
		}
	}
}

// BroadcastPost sends message to every room whose session features postID.
func (h *LiveHub) BroadcastPost(postID uuid.UUID, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.rooms {
		if r.postID != postID {
			continue
		}
		for c := range r.clients {
			c.TrySend(message)
		}
	}
}

// BroadcastAll sends message to every connected websocket client.
func (h *LiveHub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.rooms {
		for c := range r.clients {
			c.TrySend(message)
		}
	}
}

// Deliver routes a payload received on channel to the matching clients.
func (h *LiveHub) Deliver(channel, payload string) {
	kind, id := ParseTopic(channel)
	data := []byte(payload)
	switch kind {
	case TopicGlobal:
		h.BroadcastAll(data)
	case TopicSession:
		h.BroadcastRoom(id, data)
	case TopicPost:
		h.BroadcastPost(id, data)
	default:
		middleware.Logger.Warn("dropping message on unknown live channel", slog.String("channel", channel))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(eventType(payload)).Inc()
}

// Publish delivers event to local rooms directly. It lets the hub act as a
// broadcast sink when no Redis is configured.
func (h *LiveHub) Publish(_ context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.Deliver(topic, string(payload))
	return nil
}

// StartWiring subscribes the hub to every live topic through n.
func (h *LiveHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, h.Deliver)
}

// Shutdown sends every viewer a going-away close frame and empties the hub.
func (h *LiveHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.rooms {
		for client := range r.clients {
			client.hangUp(goingAway)
		}
	}
	h.rooms = make(map[uuid.UUID]*room)
	h.perUser = make(map[uuid.UUID]int)
	h.totalConns = 0
	return nil
}
