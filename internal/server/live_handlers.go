package server

import (
	"context"

	"pipal/internal/models"
	"pipal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CreateLiveSession handles POST /api/live
func (s *Server) CreateLiveSession(c *fiber.Ctx) error {
	var req struct {
		PostID        uuid.UUID `json:"postId"`
		Title         string    `json:"title"`
		Description   string    `json:"description"`
		VotesRequired *int      `json:"votesRequired"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.PostID == uuid.Nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("postId is required"))
	}

	session, err := s.liveService.Create(c.UserContext(), service.CreateLiveSessionInput{
		SellerID:      currentUser(c).ID,
		PostID:        req.PostID,
		Title:         req.Title,
		Description:   req.Description,
		VotesRequired: req.VotesRequired,
	})
	if err != nil {
		return s.mapOwnedResourceError(c, "Post", req.PostID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// StartLiveSession handles POST /api/live/:id/start
func (s *Server) StartLiveSession(c *fiber.Ctx) error {
	return s.transitionLiveSession(c, s.liveService.Start)
}

// EndLiveSession handles POST /api/live/:id/end
func (s *Server) EndLiveSession(c *fiber.Ctx) error {
	return s.transitionLiveSession(c, s.liveService.End)
}

// CancelLiveSession handles POST /api/live/:id/cancel
func (s *Server) CancelLiveSession(c *fiber.Ctx) error {
	return s.transitionLiveSession(c, s.liveService.Cancel)
}

func (s *Server) transitionLiveSession(
	c *fiber.Ctx,
	transition func(ctx context.Context, id, actorID uuid.UUID) (*models.LiveSession, error),
) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	session, err := transition(c.UserContext(), id, currentUser(c).ID)
	if err != nil {
		return s.mapOwnedResourceError(c, "Live session", id, err)
	}
	return c.JSON(session)
}

// GetLiveSession handles GET /api/live/:id
func (s *Server) GetLiveSession(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	session, err := s.liveService.Get(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(session)
}

// ListLiveSessions handles GET /api/live?status=
func (s *Server) ListLiveSessions(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	sessions, err := s.liveService.List(c.UserContext(),
		models.LiveSessionStatus(c.Query("status")), p.Limit, p.Offset)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(sessions)
}
