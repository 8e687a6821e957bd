package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"pipal/internal/cache"
	"pipal/internal/models"
	"pipal/internal/notifications"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func newAuthUser(t *testing.T, password string, active bool) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Email:        "seller@example.com",
		Username:     "seller",
		PasswordHash: hash,
		Role:         models.RoleSeller,
		IsActive:     active,
	}
}

func TestAuthService_LoginAndVerify(t *testing.T) {
	user := newAuthUser(t, "hunter22", true)
	svc := NewAuthService(newUserRepoStub(user), nil, testSecret, time.Hour)
	ctx := context.Background()

	res, err := svc.Login(ctx, " Seller@Example.com ", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	require.NotEmpty(t, res.Token)

	got, err := svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Login(ctx, "seller@example.com", "wrong")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
	_, err = svc.Login(ctx, "", "")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.Verify(ctx, "garbage")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAuthService_InactiveUserRejected(t *testing.T) {
	user := newAuthUser(t, "hunter22", false)
	svc := NewAuthService(newUserRepoStub(user), nil, testSecret, time.Hour)

	_, err := svc.Login(context.Background(), user.Email, "hunter22")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAuthService_WSTicketSingleUse(t *testing.T) {
	rdb, mr := newTestRedis(t)
	user := newAuthUser(t, "hunter22", true)
	svc := NewAuthService(newUserRepoStub(user), rdb, testSecret, time.Hour)
	ctx := context.Background()

	ticket, err := svc.IssueWSTicket(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.WSTicketKey(ticket)))
	assert.InDelta(t, cache.WSTicketTTL.Seconds(), mr.TTL(cache.WSTicketKey(ticket)).Seconds(), 1)

	got, err := svc.ConsumeWSTicket(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.ConsumeWSTicket(ctx, ticket)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	expiring, err := svc.IssueWSTicket(ctx, user.ID)
	require.NoError(t, err)
	mr.FastForward(cache.WSTicketTTL + time.Second)
	_, err = svc.ConsumeWSTicket(ctx, expiring)
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestAuthService_WSTicketWithoutRedis(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, testSecret, time.Hour)
	_, err := svc.IssueWSTicket(context.Background(), uuid.New())
	assert.True(t, models.HasCode(err, models.CodeStoreUnavailable))
}

func chatSessions(status models.LiveSessionStatus) *liveRepoStub {
	repo := noopLiveRepo()
	repo.getByIDFn = func(_ context.Context, id uuid.UUID) (*models.LiveSession, error) {
		return &models.LiveSession{ID: id, Status: status}, nil
	}
	return repo
}

func TestChatService_SendLiveMessage(t *testing.T) {
	rdb, _ := newTestRedis(t)
	pub := &recordingPublisher{}
	svc := NewChatService(chatSessions(models.LiveSessionLive), cache.NewIdempotencyStore(rdb), pub)
	sender := &models.User{ID: uuid.New(), Username: "buyer"}
	sessionID := uuid.New()
	ctx := context.Background()

	msg, dup, err := svc.SendLiveMessage(ctx, SendChatInput{SessionID: sessionID, Sender: sender, Content: " hi! ", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, "hi!", msg.Content)
	assert.Equal(t, "buyer", msg.Username)

	_, dup, err = svc.SendLiveMessage(ctx, SendChatInput{SessionID: sessionID, Sender: sender, Content: "hi!", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, dup)

	events := pub.ofType(notifications.EventNewMessage)
	require.Len(t, events, 1)
	assert.Equal(t, notifications.SessionTopic(sessionID), events[0].Topic)

	_, _, err = svc.SendLiveMessage(ctx, SendChatInput{SessionID: sessionID, Sender: sender, Content: "  "})
	assert.True(t, models.HasCode(err, models.CodeValidation))
	_, _, err = svc.SendLiveMessage(ctx, SendChatInput{SessionID: sessionID, Sender: sender, Content: strings.Repeat("é", 501)})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestChatService_ClosedSessionRejected(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewChatService(chatSessions(models.LiveSessionEnded), cache.NewIdempotencyStore(nil), pub)

	_, _, err := svc.SendLiveMessage(context.Background(), SendChatInput{
		SessionID: uuid.New(),
		Sender:    &models.User{ID: uuid.New()},
		Content:   "anyone here?",
	})
	assert.True(t, models.HasCode(err, models.CodeValidation))
	assert.Empty(t, pub.events)
}
