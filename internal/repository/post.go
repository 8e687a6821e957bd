package repository

import (
	"context"

	"pipal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostRepository defines persistence operations for feed posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return translate(err, "Post", post.ID)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Product").
		First(&post, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "Post", id)
	}
	return &post, nil
}

// List returns active posts, newest first.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Preload("User").
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, translate(err, "Post", nil)
	}
	return posts, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, translate(err, "Post", nil)
	}
	return posts, nil
}
