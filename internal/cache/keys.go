package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// LiveListTTL bounds how stale the public live session listing may be.
	LiveListTTL = 5 * time.Second
	// WSTicketTTL is the lifetime of a single-use websocket ticket.
	WSTicketTTL = 60 * time.Second
	// ChatIdempotencyTTL is how long a chat Idempotency-Key is remembered.
	ChatIdempotencyTTL = 10 * time.Minute
)

// LiveListKey caches GET /live for one status filter.
func LiveListKey(status string) string {
	return "live:list:" + status
}

// WSTicketKey stores the user a websocket ticket was issued to.
func WSTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}

// ChatMessageKey scopes a chat idempotency key to its session and sender.
func ChatMessageKey(sessionID, userID uuid.UUID, key string) string {
	return fmt.Sprintf("chat:%s:%s:%s", sessionID, userID, key)
}
