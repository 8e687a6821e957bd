package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"pipal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoteRepository is the vote ledger.
type VoteRepository interface {
	// Cast records the vote and returns the post's new tally for the vote's kind.
	// The insert, the live_session counter and the threshold latch commit together.
	Cast(ctx context.Context, vote *models.Vote, threshold int) (*models.VoteResult, error)
	Tally(ctx context.Context, postID uuid.UUID, voteType models.VoteType) (int64, error)
	// ListVoters returns up to limit voters older than after, newest first.
	ListVoters(ctx context.Context, postID uuid.UUID, voteType models.VoteType, after *VoterCursor, limit int) ([]models.Voter, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Cast(ctx context.Context, vote *models.Vote, threshold int) (*models.VoteResult, error) {
	if vote.VoteType == "" {
		vote.VoteType = models.VoteTypeLiveSession
	}

	result := &models.VoteResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").
			Where("id = ? AND is_active = ?", vote.PostID, true).
			Take(&post).Error; err != nil {
			return translate(err, "Post", vote.PostID)
		}

		if err := tx.Create(vote).Error; err != nil {
			if isUniqueViolation(err) {
				return models.NewDuplicateVoteError(vote.PostID, vote.VoteType)
			}
			return err
		}

		var tally int64
		if vote.VoteType == models.VoteTypeLiveSession {
			if err := tx.Model(&models.Post{}).
				Where("id = ?", vote.PostID).
				UpdateColumn("votes_count", gorm.Expr("votes_count + ?", 1)).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Post{}).
				Select("votes_count").
				Where("id = ?", vote.PostID).
				Scan(&tally).Error; err != nil {
				return err
			}
		} else if err := tx.Model(&models.Vote{}).
			Where("post_id = ? AND vote_type = ?", vote.PostID, vote.VoteType).
			Count(&tally).Error; err != nil {
			return err
		}

		result.TotalVotes = int(tally)
		result.ThresholdReached = tally >= int64(threshold)

		if vote.VoteType != models.VoteTypeLiveSession || !result.ThresholdReached {
			return nil
		}
		crossed, err := claimThresholdLatch(tx, vote.PostID)
		if err != nil {
			return err
		}
		result.ThresholdCrossed = crossed
		return nil
	})
	if err != nil {
		return nil, translate(err, "Post", vote.PostID)
	}
	return result, nil
}

// claimThresholdLatch sets posts.threshold_notified_at when no scheduled or live
// session exists for the post. Only the caller whose update hits a row wins.
func claimThresholdLatch(tx *gorm.DB, postID uuid.UUID) (bool, error) {
	var active int64
	if err := tx.Model(&models.LiveSession{}).
		Where("post_id = ? AND status IN ?", postID,
			[]models.LiveSessionStatus{models.LiveSessionScheduled, models.LiveSessionLive}).
		Count(&active).Error; err != nil {
		return false, err
	}
	if active > 0 {
		return false, nil
	}

	res := tx.Model(&models.Post{}).
		Where("id = ? AND threshold_notified_at IS NULL", postID).
		UpdateColumn("threshold_notified_at", time.Now().UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// releaseThresholdLatch re-arms threshold notification for a post.
func releaseThresholdLatch(tx *gorm.DB, postID uuid.UUID) error {
	return tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("threshold_notified_at", nil).Error
}

func (r *voteRepository) Tally(ctx context.Context, postID uuid.UUID, voteType models.VoteType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Where("post_id = ? AND vote_type = ?", postID, voteType).
		Count(&count).Error
	if err != nil {
		return 0, translate(err, "Vote", postID)
	}
	return count, nil
}

func (r *voteRepository) ListVoters(ctx context.Context, postID uuid.UUID, voteType models.VoteType, after *VoterCursor, limit int) ([]models.Voter, error) {
	query := r.db.WithContext(ctx).
		Table("votes").
		Select("votes.id AS vote_id, votes.user_id, users.username, users.profile_image_url, votes.voted_at").
		Joins("JOIN users ON users.id = votes.user_id").
		Where("votes.post_id = ? AND votes.vote_type = ?", postID, voteType)

	if after != nil {
		query = query.Where("(votes.voted_at < ?) OR (votes.voted_at = ? AND votes.id < ?)",
			after.VotedAt, after.VotedAt, after.ID)
	}

	var voters []models.Voter
	err := query.
		Order("votes.voted_at DESC, votes.id DESC").
		Limit(clampLimit(limit)).
		Scan(&voters).Error
	if err != nil {
		return nil, translate(err, "Vote", postID)
	}
	return voters, nil
}

// VoterCursor is a keyset position in a voter listing.
type VoterCursor struct {
	VotedAt time.Time
	ID      uuid.UUID
}

// CursorAfter returns the position just past v.
func CursorAfter(v models.Voter) *VoterCursor {
	return &VoterCursor{VotedAt: v.VotedAt, ID: v.VoteID}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c VoterCursor) Encode() string {
	raw := c.VotedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeVoterCursor parses a token produced by Encode. An empty token yields nil.
func DecodeVoterCursor(token string) (*VoterCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, fmt.Errorf("malformed cursor")
	}
	votedAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor time: %w", err)
	}
	voteID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor id: %w", err)
	}
	return &VoterCursor{VotedAt: votedAt, ID: voteID}, nil
}
