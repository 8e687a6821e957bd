package server

import (
	"pipal/internal/cache"
	"pipal/internal/models"
	"pipal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": res.Token,
		"user":  res.User,
	})
}

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": res.Token,
		"user":  res.User,
	})
}

// GetMe handles GET /api/auth/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}
	return c.JSON(user)
}

// IssueWSTicket handles POST /api/ws/ticket
// The ticket is single-use and short-lived; browsers cannot set headers on upgrade requests.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	user := currentUser(c)
	ticket, err := s.authService.IssueWSTicket(c.UserContext(), user.ID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WSTicketTTL.Seconds()),
	})
}
