package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg := <-c.outbox:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestLiveHub_RoutesByTopic(t *testing.T) {
	h := NewLiveHub()
	sessionA, sessionB := uuid.New(), uuid.New()
	postA, postB := uuid.New(), uuid.New()

	a, err := h.Register(sessionA, postA, uuid.New(), nil)
	require.NoError(t, err)
	b, err := h.Register(sessionB, postB, uuid.New(), nil)
	require.NoError(t, err)

	h.Deliver(SessionTopic(sessionA), `{"type":"new-message"}`)
	assert.Equal(t, []string{`{"type":"new-message"}`}, drain(a))
	assert.Empty(t, drain(b))

	h.Deliver(PostTopic(postB), `{"type":"vote-update"}`)
	assert.Empty(t, drain(a))
	assert.Equal(t, []string{`{"type":"vote-update"}`}, drain(b))

	h.Deliver(GlobalTopic, `{"type":"session-started"}`)
	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)

	h.Deliver("chat:conv:1", `{"type":"ignored"}`)
	assert.Empty(t, drain(a))
}

func TestLiveHub_PresenceCallbacks(t *testing.T) {
	h := NewLiveHub()
	session, user := uuid.New(), uuid.New()

	var mu sync.Mutex
	var joins, leaves int
	h.SetPresenceCallbacks(
		func(_ context.Context, s, u uuid.UUID) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, session, s)
			assert.Equal(t, user, u)
			joins++
		},
		func(_ context.Context, _, _ uuid.UUID) {
			mu.Lock()
			defer mu.Unlock()
			leaves++
		},
	)

	c, err := h.Register(session, uuid.New(), user, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, h.RoomSize(session))

	h.UnregisterClient(c)
	h.UnregisterClient(c)
	assert.Equal(t, 0, h.RoomSize(session))
	assert.Equal(t, 1, joins)
	assert.Equal(t, 1, leaves)
}

func TestLiveHub_PerUserLimit(t *testing.T) {
	h := NewLiveHub()
	user := uuid.New()

	for i := 0; i < maxConnsPerUser; i++ {
		_, err := h.Register(uuid.New(), uuid.New(), user, nil)
		require.NoError(t, err)
	}
	_, err := h.Register(uuid.New(), uuid.New(), user, nil)
	assert.Error(t, err)

	_, err = h.Register(uuid.New(), uuid.New(), uuid.New(), nil)
	assert.NoError(t, err)
}

func TestLiveHub_TrySendDropsWhenFull(t *testing.T) {
	h := NewLiveHub()
	session := uuid.New()
	c, err := h.Register(session, uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	for i := 0; i < outboxSize+5; i++ {
		h.BroadcastRoom(session, []byte(`{"type":"vote-update"}`))
	}
	assert.Len(t, c.outbox, outboxSize)

	<-c.outbox
	c.hangUp(nil)
	c.TrySend([]byte("late"))
	assert.Len(t, c.outbox, outboxSize-1)
}

func TestLiveHub_StartWiring(t *testing.T) {
	n := NewNotifier(newRedis(t))
	h := NewLiveHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.StartWiring(ctx, n))

	session := uuid.New()
	c, err := h.Register(session, uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	require.NoError(t, n.Publish(context.Background(), SessionTopic(session), Event{Type: EventNewMessage}))
	assert.Eventually(t, func() bool { return len(c.outbox) == 1 }, time.Second, 10*time.Millisecond)

	assert.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, 0, h.RoomSize(session))
	select {
	case <-c.stopped:
	default:
		t.Fatal("shutdown should hang up every client")
	}
	assert.Equal(t, goingAway, c.stopFrame)
}

func TestLiveHub_PublishAsLocalSink(t *testing.T) {
	h := NewLiveHub()
	session := uuid.New()
	c, err := h.Register(session, uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	var sink Sink = h
	require.NoError(t, sink.Publish(context.Background(), SessionTopic(session), Event{
		Type:    EventNewMessage,
		Payload: map[string]string{"content": "hi"},
	}))
	assert.Equal(t, []string{`{"type":"new-message","payload":{"content":"hi"}}`}, drain(c))
}
