package notifications

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Event is the envelope delivered on every topic.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types.
const (
	EventVoteUpdate       = "vote-update"
	EventThresholdCrossed = "threshold-crossed"
	EventSessionCreated   = "session-created"
	EventSessionStarted   = "session-started"
	EventSessionEnded     = "session-ended"
	EventSessionCancelled = "session-cancelled"
	EventNewMessage       = "new-message"
	EventInventoryChanged = "inventory-changed"
	EventViewerJoined     = "viewer-joined"
	EventViewerLeft       = "viewer-left"
)

// GlobalTopic reaches every connected client.
const GlobalTopic = "live:global"

const (
	sessionTopicPrefix = "live:session:"
	postTopicPrefix    = "live:post:"
	topicPattern       = "live:*"
)

// SessionTopic is the topic for one live session's room.
func SessionTopic(sessionID uuid.UUID) string {
	return sessionTopicPrefix + sessionID.String()
}

// PostTopic is the topic for vote activity on one post.
func PostTopic(postID uuid.UUID) string {
	return postTopicPrefix + postID.String()
}

// TopicKind identifies which family a topic belongs to.
type TopicKind int

const (
	TopicUnknown TopicKind = iota
	TopicGlobal
	TopicSession
	TopicPost
)

// ParseTopic splits a topic into its kind and entity id.
func ParseTopic(topic string) (TopicKind, uuid.UUID) {
	if topic == GlobalTopic {
		return TopicGlobal, uuid.Nil
	}
	for prefix, kind := range map[string]TopicKind{sessionTopicPrefix: TopicSession, postTopicPrefix: TopicPost} {
		if rest, ok := strings.CutPrefix(topic, prefix); ok {
			id, err := uuid.Parse(rest)
			if err != nil {
				return TopicUnknown, uuid.Nil
			}
			return kind, id
		}
	}
	return TopicUnknown, uuid.Nil
}

// eventType extracts the type of an encoded Event for metrics labels.
func eventType(payload string) string {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.Type == "" {
		return "unknown"
	}
	return env.Type
}
