package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"pipal/internal/middleware"
	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	liveChatFrame     = "live-chat"
	liveChatRateLimit = 15
)

// requireUpgrade rejects plain HTTP requests on websocket routes before any ticket is spent.
func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// LiveRoomHandler handles GET /api/ws/live/:sessionId. Each connection joins the
// session's room, receives session, vote and inventory events, and may send
// live-chat frames that are relayed as new-message events.
func (s *Server) LiveRoomHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := parseUUID(c, "sessionId")
		if err != nil {
			return nil
		}
		session, err := s.liveService.Get(c.UserContext(), sessionID)
		if err != nil {
			return s.mapServiceError(c, err)
		}
		if !session.Status.IsActive() {
			return models.RespondWithError(c, fiber.StatusConflict,
				models.NewConflictError("Live session is closed"))
		}
		c.Locals("liveSession", session)
		return websocket.New(s.serveLiveRoom)(c)
	}
}

func (s *Server) serveLiveRoom(conn *websocket.Conn) {
	user, _ := conn.Locals("user").(*models.User)
	session, _ := conn.Locals("liveSession").(*models.LiveSession)
	if user == nil || session == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
		_ = conn.Close()
		return
	}

	client, err := s.hub.Register(session.ID, session.PostID, user.ID, conn)
	if err != nil {
		middleware.Logger.Warn("live room registration refused",
			slog.String("session_id", session.ID.String()),
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
		_ = conn.Close()
		return
	}

	client.OnFrame = func(c *notifications.Client, message []byte) {
		s.handleLiveFrame(c, user, message)
	}

	if welcome, err := json.Marshal(notifications.Event{
		Type: "connected",
		Payload: fiber.Map{
			"sessionId": session.ID,
			"postId":    session.PostID,
			"status":    session.Status,
		},
	}); err == nil {
		client.TrySend(welcome)
	}

	client.Serve()
}

type liveFrame struct {
	Type           string `json:"type"`
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotencyKey"`
}

func (s *Server) handleLiveFrame(c *notifications.Client, user *models.User, message []byte) {
	var frame liveFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return
	}
	if frame.Type != liveChatFrame {
		return
	}

	ctx, cancel := context.WithTimeout(middleware.WithUserID(context.Background(), user.ID), 5*time.Second)
	defer cancel()

	if s.redis != nil {
		allowed, _, err := middleware.CheckRateLimit(ctx, s.redis, "live_chat", "user:"+user.ID.String(), liveChatRateLimit, time.Minute)
		if err == nil && !allowed {
			sendFrameError(c, "Rate limit exceeded. Please wait a moment.")
			return
		}
	}

	_, _, err := s.chatService.SendLiveMessage(ctx, service.SendChatInput{
		SessionID:      c.SessionID,
		Sender:         user,
		Content:        frame.Content,
		IdempotencyKey: frame.IdempotencyKey,
	})
	if err != nil {
		var msg string
		if models.HasCode(err, models.CodeValidation) {
			msg = err.Error()
		} else {
			msg = "Message could not be sent"
			middleware.Logger.ErrorContext(ctx, "live chat frame failed",
				slog.String("session_id", c.SessionID.String()),
				slog.String("error", err.Error()),
			)
		}
		sendFrameError(c, msg)
	}
}

func sendFrameError(c *notifications.Client, message string) {
	payload, err := json.Marshal(notifications.Event{Type: "error", Payload: fiber.Map{"message": message}})
	if err == nil {
		c.TrySend(payload)
	}
}

// SendLiveChat handles POST /api/chat/live/:sessionId
func (s *Server) SendLiveChat(c *fiber.Ctx) error {
	sessionID, err := parseUUID(c, "sessionId")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, duplicate, err := s.chatService.SendLiveMessage(c.UserContext(), service.SendChatInput{
		SessionID:      sessionID,
		Sender:         currentUser(c),
		Content:        req.Content,
		IdempotencyKey: c.Get("Idempotency-Key"),
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	if duplicate {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"duplicate": true})
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uuid.UUID)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
