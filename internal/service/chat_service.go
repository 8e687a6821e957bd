package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"pipal/internal/cache"
	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/repository"

	"github.com/google/uuid"
)

const maxChatMessageLen = 500

// ChatService relays live-room chat messages.
type ChatService struct {
	sessions  repository.LiveSessionRepository
	idem      cache.IdempotencyStore
	publisher Publisher
}

// ChatMessage is the payload of a new-message event.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sentAt"`
}

// SendChatInput is one chat message request.
type SendChatInput struct {
	SessionID      uuid.UUID
	Sender         *models.User
	Content        string
	IdempotencyKey string
}

func NewChatService(
	sessions repository.LiveSessionRepository,
	idem cache.IdempotencyStore,
	publisher Publisher,
) *ChatService {
	return &ChatService{sessions: sessions, idem: idem, publisher: publisherOrNoop(publisher)}
}

// SendLiveMessage publishes a message to the session room. A repeated
// idempotency key returns duplicate=true without publishing again.
func (s *ChatService) SendLiveMessage(ctx context.Context, in SendChatInput) (msg *ChatMessage, duplicate bool, err error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, false, models.NewValidationError("Message content is required")
	}
	if utf8.RuneCountInString(content) > maxChatMessageLen {
		return nil, false, models.NewValidationError("Message too long (max 500 characters)")
	}

	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, false, err
	}
	if !session.Status.IsActive() {
		return nil, false, models.NewValidationError("Live session is not open for chat")
	}

	if in.IdempotencyKey != "" && s.idem != nil {
		fresh, err := s.idem.PutNX(ctx, cache.ChatMessageKey(in.SessionID, in.Sender.ID, in.IdempotencyKey), cache.ChatIdempotencyTTL)
		// Redis outages fail open.
		if err == nil && !fresh {
			return nil, true, nil
		}
	}

	msg = &ChatMessage{
		ID:        uuid.New(),
		SessionID: in.SessionID,
		UserID:    in.Sender.ID,
		Username:  in.Sender.Username,
		Content:   content,
		SentAt:    time.Now().UTC(),
	}
	s.publisher.Publish(ctx, notifications.SessionTopic(in.SessionID), notifications.Event{
		Type:    notifications.EventNewMessage,
		Payload: msg,
	})
	return msg, false, nil
}
