package notifications

import (
	"log/slog"
	"sync"
	"time"

	"pipal/internal/middleware"
	"pipal/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Live room connection limits. The server pings a little more often than the
// idle timeout so a healthy viewer never trips it.
const (
	writeTimeout  = 10 * time.Second
	idleTimeout   = 60 * time.Second
	pingInterval  = idleTimeout * 9 / 10
	maxFrameBytes = 16 << 10
	outboxSize    = 256
)

var (
	droppedNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)
	goingAway     = websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
)

// Client is one viewer connection inside a live room.
type Client struct {
	UserID    uuid.UUID
	SessionID uuid.UUID

	// OnFrame receives every frame the viewer sends. Set it before Serve.
	OnFrame func(*Client, []byte)

	hub    *LiveHub
	conn   *websocket.Conn
	outbox chan []byte

	// Only the write loop touches conn for writes; hangUp hands it the close frame.
	stopped   chan struct{}
	stopOnce  sync.Once
	stopFrame []byte
}

func newClient(hub *LiveHub, conn *websocket.Conn, userID, sessionID uuid.UUID) *Client {
	return &Client{
		UserID:    userID,
		SessionID: sessionID,
		hub:       hub,
		conn:      conn,
		outbox:    make(chan []byte, outboxSize),
		stopped:   make(chan struct{}),
	}
}

// Serve runs the connection until the viewer leaves or the hub hangs up.
// It blocks, and the client is out of its room when it returns.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.hangUp(nil)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("live room read ended",
					slog.String("user_id", c.UserID.String()),
					slog.String("session_id", c.SessionID.String()),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		if c.OnFrame != nil {
			c.OnFrame(c, frame)
		}
	}
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outbox:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.stopped:
			if c.stopFrame != nil {
				_ = c.write(websocket.CloseMessage, c.stopFrame)
			}
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// hangUp stops the write loop, sending frame first when it is non-nil.
func (c *Client) hangUp(frame []byte) {
	c.stopOnce.Do(func() {
		c.stopFrame = frame
		close(c.stopped)
	})
}

// TrySend queues message without blocking. A slow viewer gets a drop notice
// instead of stalling the room; a stopped one gets nothing.
func (c *Client) TrySend(message []byte) {
	select {
	case <-c.stopped:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		return
	default:
	}

	select {
	case c.outbox <- message:
		return
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
	middleware.Logger.Warn("live room outbox full, dropped message",
		slog.String("session_id", c.SessionID.String()),
		slog.String("user_id", c.UserID.String()),
	)
	select {
	case c.outbox <- droppedNotice:
	default:
	}
}
