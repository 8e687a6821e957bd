package repository

import (
	"context"

	"pipal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialRepository stores likes and follows together with their denormalized counters.
type SocialRepository interface {
	// ToggleLike removes the user's like on the post if present, otherwise adds it.
	ToggleLike(ctx context.Context, userID, postID uuid.UUID) (*models.LikeResult, error)
	// ToggleFollow removes the follow edge if present, otherwise adds it.
	ToggleFollow(ctx context.Context, followerID, followingID uuid.UUID) (*models.FollowResult, error)
	Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FollowUser, error)
	Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FollowUser, error)
}

type socialRepository struct {
	db *gorm.DB
}

// NewSocialRepository creates a new social repository
func NewSocialRepository(db *gorm.DB) SocialRepository {
	return &socialRepository{db: db}
}

func (r *socialRepository) ToggleLike(ctx context.Context, userID, postID uuid.UUID) (*models.LikeResult, error) {
	result := &models.LikeResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("id").
			Where("id = ? AND is_active = ?", postID, true).
			Take(&post).Error; err != nil {
			return translate(err, "Post", postID)
		}

		removed := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected == 1 {
			if err := bumpCounter(tx, &models.Post{}, postID, "likes_count", -1); err != nil {
				return err
			}
		} else {
			// A concurrent like by the same user wins the insert; this toggle then reports liked.
			added := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Like{UserID: userID, PostID: postID})
			if added.Error != nil {
				return added.Error
			}
			if added.RowsAffected == 1 {
				if err := bumpCounter(tx, &models.Post{}, postID, "likes_count", 1); err != nil {
					return err
				}
			}
			result.Liked = true
		}

		return tx.Model(&models.Post{}).
			Select("likes_count").
			Where("id = ?", postID).
			Scan(&result.LikesCount).Error
	})
	if err != nil {
		return nil, translate(err, "Post", postID)
	}
	return result, nil
}

func (r *socialRepository) ToggleFollow(ctx context.Context, followerID, followingID uuid.UUID) (*models.FollowResult, error) {
	result := &models.FollowResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.Select("id").
			Where("id = ? AND is_active = ?", followingID, true).
			Take(&target).Error; err != nil {
			return translate(err, "User", followingID)
		}

		removed := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&models.Follow{})
		if removed.Error != nil {
			return removed.Error
		}

		delta := 0
		if removed.RowsAffected == 1 {
			delta = -1
		} else {
			added := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
			if added.Error != nil {
				return added.Error
			}
			if added.RowsAffected == 1 {
				delta = 1
			}
			result.Following = true
		}

		if delta != 0 {
			if err := bumpCounter(tx, &models.User{}, followingID, "followers_count", delta); err != nil {
				return err
			}
			if err := bumpCounter(tx, &models.User{}, followerID, "following_count", delta); err != nil {
				return err
			}
		}

		return tx.Model(&models.User{}).
			Select("followers_count").
			Where("id = ?", followingID).
			Scan(&result.FollowersCount).Error
	})
	if err != nil {
		return nil, translate(err, "User", followingID)
	}
	return result, nil
}

func (r *socialRepository) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FollowUser, error) {
	return r.listFollows(ctx, "follows.follower_id", "follows.following_id", userID, limit, offset)
}

func (r *socialRepository) Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FollowUser, error) {
	return r.listFollows(ctx, "follows.following_id", "follows.follower_id", userID, limit, offset)
}

// listFollows joins the users on joinCol for edges whose matchCol is userID, newest first.
func (r *socialRepository) listFollows(ctx context.Context, joinCol, matchCol string, userID uuid.UUID, limit, offset int) ([]models.FollowUser, error) {
	var rows []models.FollowUser
	err := r.db.WithContext(ctx).
		Table("follows").
		Select("users.id, users.username, users.first_name, users.last_name, users.profile_image_url, users.is_verified, follows.followed_at").
		Joins("JOIN users ON users.id = "+joinCol).
		Where(matchCol+" = ? AND users.is_active = ?", userID, true).
		Order("follows.followed_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "User", userID)
	}
	return rows, nil
}

// bumpCounter adds delta to column in place; decrements never go below zero.
func bumpCounter(tx *gorm.DB, model any, id uuid.UUID, column string, delta int) error {
	q := tx.Model(model).Where("id = ?", id)
	if delta < 0 {
		q = q.Where(column+" >= ?", -delta)
	}
	return q.UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}
