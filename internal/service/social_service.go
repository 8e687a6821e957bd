package service

import (
	"context"

	"pipal/internal/models"
	"pipal/internal/repository"

	"github.com/google/uuid"
)

// SocialService covers post likes, the follow graph and public profiles.
type SocialService struct {
	social repository.SocialRepository
	users  repository.UserRepository
}

func NewSocialService(social repository.SocialRepository, users repository.UserRepository) *SocialService {
	return &SocialService{social: social, users: users}
}

func (s *SocialService) ToggleLike(ctx context.Context, userID, postID uuid.UUID) (*models.LikeResult, error) {
	return s.social.ToggleLike(ctx, userID, postID)
}

// ToggleFollow follows or unfollows targetID on behalf of followerID.
func (s *SocialService) ToggleFollow(ctx context.Context, followerID, targetID uuid.UUID) (*models.FollowResult, error) {
	if followerID == targetID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}
	return s.social.ToggleFollow(ctx, followerID, targetID)
}

// Profile returns the public view of an active user.
func (s *SocialService) Profile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *SocialService) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FollowUser, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.social.Followers(ctx, userID, limit, offset)
}

func (s *SocialService) Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.FollowUser, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.social.Following(ctx, userID, limit, offset)
}

// Deactivated accounts read as missing.
func (s *SocialService) activeUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewNotFoundError("User", userID)
	}
	return user, nil
}
