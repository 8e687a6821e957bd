package repository

import (
	"context"
	"errors"
	"time"

	"pipal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LiveSessionRepository persists live sessions and their lifecycle.
type LiveSessionRepository interface {
	// Create stores a scheduled session for a post owned by session.SellerID and
	// snapshots the post's tally into TotalVotes.
	Create(ctx context.Context, session *models.LiveSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error)
	List(ctx context.Context, status models.LiveSessionStatus, limit, offset int) ([]models.LiveSessionSummary, error)
	// Transition moves the session to next with one conditional update.
	Transition(ctx context.Context, id, actorID uuid.UUID, next models.LiveSessionStatus, opts TransitionOptions) (*models.LiveSession, error)
	IncrementViewers(ctx context.Context, id uuid.UUID) error
	DecrementViewers(ctx context.Context, id uuid.UUID) error
}

// TransitionOptions tunes Transition.
type TransitionOptions struct {
	// SingleActivePerSeller refuses a start while the seller has another live session.
	SingleActivePerSeller bool
}

type liveSessionRepository struct {
	db *gorm.DB
}

// NewLiveSessionRepository creates a new live session repository
func NewLiveSessionRepository(db *gorm.DB) LiveSessionRepository {
	return &liveSessionRepository{db: db}
}

func (r *liveSessionRepository) Create(ctx context.Context, session *models.LiveSession) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		err := tx.Select("id", "votes_count").
			Where("id = ? AND user_id = ?", session.PostID, session.SellerID).
			Take(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotOwnerError("Post", session.PostID)
		}
		if err != nil {
			return err
		}

		session.Status = models.LiveSessionScheduled
		session.TotalVotes = post.VotesCount
		if session.ScheduledStartTime.IsZero() {
			session.ScheduledStartTime = time.Now().UTC()
		}
		return tx.Create(session).Error
	})
	return translate(err, "Live session", session.ID)
}

func (r *liveSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	var session models.LiveSession
	err := r.db.WithContext(ctx).
		Preload("Seller").
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "Live session", id)
	}
	return &session, nil
}

// List returns sessions in status joined with seller and post display fields, newest first.
func (r *liveSessionRepository) List(ctx context.Context, status models.LiveSessionStatus, limit, offset int) ([]models.LiveSessionSummary, error) {
	var sessions []models.LiveSessionSummary
	err := r.db.WithContext(ctx).
		Table("live_sessions").
		Select("live_sessions.*, users.username AS seller_username, users.profile_image_url AS seller_image, posts.caption, posts.media").
		Joins("JOIN users ON users.id = live_sessions.seller_id").
		Joins("JOIN posts ON posts.id = live_sessions.post_id").
		Where("live_sessions.status = ?", status).
		Order("live_sessions.created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Scan(&sessions).Error
	if err != nil {
		return nil, translate(err, "Live session", nil)
	}
	return sessions, nil
}

func (r *liveSessionRepository) Transition(ctx context.Context, id, actorID uuid.UUID, next models.LiveSessionStatus, opts TransitionOptions) (*models.LiveSession, error) {
	sources := models.SourcesFor(next)
	if len(sources) == 0 {
		return nil, models.NewValidationError("unknown target status " + string(next))
	}
	guardSeller := opts.SingleActivePerSeller && next == models.LiveSessionLive

	now := time.Now().UTC()
	updates := map[string]any{"status": next}
	switch next {
	case models.LiveSessionLive:
		updates["actual_start_time"] = now
	case models.LiveSessionEnded, models.LiveSessionCancelled:
		updates["end_time"] = now
	}

	var session models.LiveSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if guardSeller && isPostgres(tx) {
			// Serialises concurrent starts by the same seller.
			var seller models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Take(&seller, "id = ?", actorID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		query := tx.Model(&models.LiveSession{}).
			Where("id = ? AND seller_id = ? AND status IN ?", id, actorID, sources)
		if guardSeller {
			query = query.Where("NOT EXISTS (SELECT 1 FROM live_sessions other WHERE other.seller_id = ? AND other.status = ?)",
				actorID, models.LiveSessionLive)
		}
		res := query.Updates(updates)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return explainRejectedTransition(tx, id, actorID, next, guardSeller)
		}

		if err := tx.First(&session, "id = ?", id).Error; err != nil {
			return err
		}
		if next.IsTerminal() {
			return releaseThresholdLatch(tx, session.PostID)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "Live session", id)
	}
	return &session, nil
}

// explainRejectedTransition re-reads the session after a conditional update matched nothing.
func explainRejectedTransition(tx *gorm.DB, id, actorID uuid.UUID, next models.LiveSessionStatus, guardSeller bool) error {
	var current models.LiveSession
	if err := tx.Select("id", "seller_id", "status").First(&current, "id = ?", id).Error; err != nil {
		return translate(err, "Live session", id)
	}
	if current.SellerID != actorID {
		return models.NewForbiddenError("not the seller of this live session")
	}
	if current.Status.CanTransitionTo(next) && guardSeller {
		return models.NewConflictError("seller already has a live session")
	}
	return models.NewInvalidTransitionError(current.Status, next)
}

func (r *liveSessionRepository) IncrementViewers(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.LiveSession{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"viewers_count": gorm.Expr("viewers_count + 1"),
			"peak_viewers":  gorm.Expr("CASE WHEN viewers_count + 1 > peak_viewers THEN viewers_count + 1 ELSE peak_viewers END"),
		})
	if res.Error != nil {
		return translate(res.Error, "Live session", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Live session", id)
	}
	return nil
}

func (r *liveSessionRepository) DecrementViewers(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.LiveSession{}).
		Where("id = ?", id).
		UpdateColumn("viewers_count", gorm.Expr("CASE WHEN viewers_count > 0 THEN viewers_count - 1 ELSE 0 END")).Error
	return translate(err, "Live session", id)
}
