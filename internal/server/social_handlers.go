package server

import (
	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.socialService.ToggleLike(c.UserContext(), currentUser(c).ID, postID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(res)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.socialService.Profile(c.UserContext(), userID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(profile)
}

// ToggleFollow handles POST /api/users/:id/follow
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.socialService.ToggleFollow(c.UserContext(), currentUser(c).ID, targetID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(res)
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)
	users, err := s.socialService.Followers(c.UserContext(), userID, p.Limit, p.Offset)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(users)
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)
	users, err := s.socialService.Following(c.UserContext(), userID, p.Limit, p.Offset)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(users)
}
