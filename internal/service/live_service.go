package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pipal/internal/cache"
	"pipal/internal/featureflags"
	"pipal/internal/middleware"
	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/observability"
	"pipal/internal/repository"
	"pipal/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen       = 255
	liveListPageSize  = 20
	autoSessionPrefix = "Live: "
)

// LiveService drives the live session lifecycle.
type LiveService struct {
	sessions  repository.LiveSessionRepository
	posts     repository.PostRepository
	publisher Publisher
	rdb       *redis.Client
	flags     *featureflags.Manager
	cfg       LiveConfig
}

// LiveConfig holds lifecycle settings.
type LiveConfig struct {
	VoteThreshold         int
	SingleActivePerSeller bool
}

// CreateLiveSessionInput describes a new session.
type CreateLiveSessionInput struct {
	SellerID      uuid.UUID
	PostID        uuid.UUID
	Title         string
	Description   string
	VotesRequired *int
}

// SessionEventPayload is published with every lifecycle event.
type SessionEventPayload struct {
	SessionID uuid.UUID                `json:"sessionId"`
	PostID    uuid.UUID                `json:"postId"`
	SellerID  uuid.UUID                `json:"sellerId"`
	Status    models.LiveSessionStatus `json:"status"`
	At        time.Time                `json:"at"`
}

// ViewerPayload is published when a viewer joins or leaves a room.
type ViewerPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`
}

// NewLiveService returns a LiveService. rdb and flags may be nil.
func NewLiveService(
	sessions repository.LiveSessionRepository,
	posts repository.PostRepository,
	publisher Publisher,
	rdb *redis.Client,
	flags *featureflags.Manager,
	cfg LiveConfig,
) *LiveService {
	return &LiveService{
		sessions:  sessions,
		posts:     posts,
		publisher: publisherOrNoop(publisher),
		rdb:       rdb,
		flags:     flags,
		cfg:       cfg,
	}
}

func (s *LiveService) Create(ctx context.Context, in CreateLiveSessionInput) (session *models.LiveSession, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "LiveService", "Create",
		attribute.String("post.id", in.PostID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if err := validation.ValidateLength("Title", in.Title, maxTitleLen); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	required := s.cfg.VoteThreshold
	if in.VotesRequired != nil {
		if *in.VotesRequired < 1 {
			return nil, models.NewValidationError("votesRequired must be at least 1")
		}
		required = *in.VotesRequired
	}

	session = &models.LiveSession{
		SellerID:      in.SellerID,
		PostID:        in.PostID,
		Title:         in.Title,
		Description:   in.Description,
		VotesRequired: required,
	}
	if err = s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.invalidateLists(ctx, models.LiveSessionScheduled)
	s.publisher.Publish(ctx, notifications.GlobalTopic, notifications.Event{
		Type:    notifications.EventSessionCreated,
		Payload: sessionPayload(session, session.CreatedAt),
	})
	return session, nil
}

// Start moves a scheduled session live.
func (s *LiveService) Start(ctx context.Context, id, actorID uuid.UUID) (*models.LiveSession, error) {
	return s.transition(ctx, id, actorID, models.LiveSessionLive, notifications.EventSessionStarted)
}

// End finishes a live session.
func (s *LiveService) End(ctx context.Context, id, actorID uuid.UUID) (*models.LiveSession, error) {
	return s.transition(ctx, id, actorID, models.LiveSessionEnded, notifications.EventSessionEnded)
}

// Cancel aborts a scheduled or live session.
func (s *LiveService) Cancel(ctx context.Context, id, actorID uuid.UUID) (*models.LiveSession, error) {
	return s.transition(ctx, id, actorID, models.LiveSessionCancelled, notifications.EventSessionCancelled)
}

func (s *LiveService) transition(
	ctx context.Context, id, actorID uuid.UUID, next models.LiveSessionStatus, eventType string,
) (session *models.LiveSession, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "LiveService", "Transition",
		attribute.String("session.id", id.String()),
		attribute.String("session.to", string(next)),
	)
	defer func() { observability.EndSpan(span, err) }()

	session, err = s.sessions.Transition(ctx, id, actorID, next, repository.TransitionOptions{
		SingleActivePerSeller: s.cfg.SingleActivePerSeller,
	})
	if err != nil {
		result := observability.ResultError
		if models.HasCode(err, models.CodeInvalidTransition) ||
			models.HasCode(err, models.CodeForbidden) ||
			models.HasCode(err, models.CodeConflict) {
			result = observability.ResultRejected
		}
		observability.LiveSessionTransitions.WithLabelValues(string(next), result).Inc()
		return nil, err
	}
	observability.LiveSessionTransitions.WithLabelValues(string(next), observability.ResultOK).Inc()

	s.invalidateLists(ctx, models.LiveSessionScheduled, models.LiveSessionLive, next)

	event := notifications.Event{Type: eventType, Payload: sessionPayload(session, session.UpdatedAt)}
	s.publisher.Publish(ctx, notifications.GlobalTopic, event)
	s.publisher.Publish(ctx, notifications.SessionTopic(session.ID), event)

	middleware.Logger.InfoContext(ctx, "live session transitioned",
		slog.String("session_id", session.ID.String()),
		slog.String("status", string(session.Status)),
	)
	return session, nil
}

func (s *LiveService) Get(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// List returns sessions in status, newest first. The first default-sized page is cached briefly.
func (s *LiveService) List(ctx context.Context, status models.LiveSessionStatus, limit, offset int) ([]models.LiveSessionSummary, error) {
	if status == "" {
		status = models.LiveSessionLive
	}
	if !status.Valid() {
		return nil, models.NewValidationError("Invalid status")
	}
	if limit <= 0 {
		limit = liveListPageSize
	}

	if offset != 0 || limit != liveListPageSize {
		return s.sessions.List(ctx, status, limit, offset)
	}

	var sessions []models.LiveSessionSummary
	err := cache.Aside(ctx, s.rdb, cache.LiveListKey(string(status)), &sessions, cache.LiveListTTL, func() error {
		var err error
		sessions, err = s.sessions.List(ctx, status, limit, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.LiveSessionSummary{}
	}
	return sessions, nil
}

// HandleThresholdCrossed schedules a session for the post owner when automatic
// creation is enabled for them. It is registered as a broadcast listener.
func (s *LiveService) HandleThresholdCrossed(ctx context.Context, _ string, event notifications.Event) {
	payload, ok := event.Payload.(ThresholdCrossedPayload)
	if !ok {
		return
	}

	post, err := s.posts.GetByID(ctx, payload.PostID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "auto-create: post lookup failed",
			slog.String("post_id", payload.PostID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !s.flags.Enabled(featureflags.LiveAutoCreate, post.UserID) {
		return
	}

	session, err := s.Create(ctx, CreateLiveSessionInput{
		SellerID: post.UserID,
		PostID:   post.ID,
		Title:    autoTitle(post.Caption),
	})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "auto-create: live session not created",
			slog.String("post_id", post.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	middleware.Logger.InfoContext(ctx, "auto-created live session",
		slog.String("session_id", session.ID.String()),
		slog.String("post_id", post.ID.String()),
	)
}

func autoTitle(caption string) string {
	title := strings.TrimSpace(caption)
	if title == "" {
		return autoSessionPrefix + "new drop"
	}
	return validation.Truncate(title, maxTitleLen)
}

// ViewerJoined counts a viewer in and tells the room.
func (s *LiveService) ViewerJoined(ctx context.Context, sessionID, userID uuid.UUID) {
	if err := s.sessions.IncrementViewers(ctx, sessionID); err != nil {
		middleware.Logger.WarnContext(ctx, "viewer join not counted",
			slog.String("session_id", sessionID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.publisher.Publish(ctx, notifications.SessionTopic(sessionID), notifications.Event{
		Type:    notifications.EventViewerJoined,
		Payload: ViewerPayload{SessionID: sessionID, UserID: userID},
	})
}

// ViewerLeft counts a viewer out and tells the room.
func (s *LiveService) ViewerLeft(ctx context.Context, sessionID, userID uuid.UUID) {
	if err := s.sessions.DecrementViewers(ctx, sessionID); err != nil {
		middleware.Logger.WarnContext(ctx, "viewer leave not counted",
			slog.String("session_id", sessionID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.publisher.Publish(ctx, notifications.SessionTopic(sessionID), notifications.Event{
		Type:    notifications.EventViewerLeft,
		Payload: ViewerPayload{SessionID: sessionID, UserID: userID},
	})
}

func (s *LiveService) invalidateLists(ctx context.Context, statuses ...models.LiveSessionStatus) {
	keys := make([]string, 0, len(statuses))
	for _, st := range statuses {
		keys = append(keys, cache.LiveListKey(string(st)))
	}
	cache.Invalidate(ctx, s.rdb, keys...)
}

func sessionPayload(session *models.LiveSession, at time.Time) SessionEventPayload {
	return SessionEventPayload{
		SessionID: session.ID,
		PostID:    session.PostID,
		SellerID:  session.SellerID,
		Status:    session.Status,
		At:        at,
	}
}
