package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"pipal/internal/database"
	"pipal/internal/featureflags"
	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// topicRecorder is a broadcast sink that remembers what went where.
type topicRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *topicRecorder) Name() string { return "recorder" }

func (r *topicRecorder) Publish(_ context.Context, topic string, event notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{Topic: topic, Event: event})
	return nil
}

func (r *topicRecorder) count(eventType, topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Event.Type == eventType && e.Topic == topic {
			n++
		}
	}
	return n
}

func openScenarioDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.db")
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", path)))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestScenario_VotesToLiveSessionAndBack(t *testing.T) {
	db := openScenarioDB(t)
	ctx := context.Background()

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	sessions := repository.NewLiveSessionRepository(db)

	recorder := &topicRecorder{}
	broadcaster := notifications.NewBroadcaster(recorder)
	votes := NewVoteService(repository.NewVoteRepository(db), broadcaster, 10)
	live := NewLiveService(sessions, posts, broadcaster, nil,
		featureflags.NewManager("live_auto_create=on"), LiveConfig{VoteThreshold: 10})
	broadcaster.Listen(notifications.EventThresholdCrossed, live.HandleThresholdCrossed)

	seller := &models.User{Email: "maker@example.com", Username: "maker", Role: models.RoleSeller, IsActive: true}
	require.NoError(t, users.Create(ctx, seller))
	post := &models.Post{UserID: seller.ID, Caption: "Hand-thrown mugs", Type: models.PostTypeProduct, IsActive: true}
	require.NoError(t, posts.Create(ctx, post))

	for i := 1; i <= 12; i++ {
		voter := &models.User{
			Email:    fmt.Sprintf("buyer%d@example.com", i),
			Username: fmt.Sprintf("buyer%d", i),
			Role:     models.RoleBuyer,
			IsActive: true,
		}
		require.NoError(t, users.Create(ctx, voter))

		res, err := votes.CastVote(ctx, CastVoteInput{UserID: voter.ID, PostID: post.ID})
		require.NoError(t, err)
		assert.Equal(t, i, res.TotalVotes)
		assert.Equal(t, i >= 10, res.ThresholdReached)
	}
	assert.Equal(t, 1, recorder.count(notifications.EventThresholdCrossed, notifications.GlobalTopic))
	assert.Equal(t, 12, recorder.count(notifications.EventVoteUpdate, notifications.PostTopic(post.ID)))

	// The listener scheduled a session for the owner.
	scheduled, err := live.List(ctx, models.LiveSessionScheduled, 0, 0)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	session := scheduled[0].LiveSession
	assert.Equal(t, seller.ID, session.SellerID)
	assert.Equal(t, "Hand-thrown mugs", session.Title)
	assert.Equal(t, 10, session.TotalVotes)
	assert.Equal(t, 1, recorder.count(notifications.EventSessionCreated, notifications.GlobalTopic))

	started, err := live.Start(ctx, session.ID, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveSessionLive, started.Status)
	assert.Equal(t, 1, recorder.count(notifications.EventSessionStarted, notifications.GlobalTopic))
	assert.Equal(t, 1, recorder.count(notifications.EventSessionStarted, notifications.SessionTopic(session.ID)))

	_, err = live.Start(ctx, session.ID, seller.ID)
	assert.True(t, models.HasCode(err, models.CodeInvalidTransition))

	ended, err := live.End(ctx, session.ID, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveSessionEnded, ended.Status)
	assert.NotNil(t, ended.EndTime)

	_, err = live.End(ctx, session.ID, seller.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, models.LiveSessionEnded, appErr.Details["current"])
	assert.Equal(t, 1, recorder.count(notifications.EventSessionEnded, notifications.GlobalTopic))

	// Ending re-armed the latch: the next vote notifies again.
	late := &models.User{Email: "late@example.com", Username: "late", Role: models.RoleBuyer, IsActive: true}
	require.NoError(t, users.Create(ctx, late))
	_, err = votes.CastVote(ctx, CastVoteInput{UserID: late.ID, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, recorder.count(notifications.EventThresholdCrossed, notifications.GlobalTopic))

	_, err = live.Start(ctx, uuid.New(), seller.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
