package server

import (
	"pipal/internal/models"
	"pipal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CastVote handles POST /api/votes/:postId
func (s *Server) CastVote(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}

	var req struct {
		VoteType models.VoteType `json:"voteType"`
		Metadata models.RawJSON  `json:"metadata"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	result, err := s.voteService.CastVote(c.UserContext(), service.CastVoteInput{
		UserID:   currentUser(c).ID,
		PostID:   postID,
		VoteType: req.VoteType,
		Metadata: req.Metadata,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(result)
}

// ListVoters handles GET /api/votes/:postId?voteType=&limit=&cursor=
func (s *Server) ListVoters(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	page, err := s.voteService.ListVoters(c.UserContext(), postID,
		models.VoteType(c.Query("voteType")), c.Query("cursor"), p.Limit)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(page)
}

// GetVoteTally handles GET /api/votes/:postId/tally?voteType=
func (s *Server) GetVoteTally(c *fiber.Ctx) error {
	postID, err := parseUUID(c, "postId")
	if err != nil {
		return nil
	}
	voteType := models.VoteType(c.Query("voteType", string(models.VoteTypeLiveSession)))

	total, err := s.voteService.Tally(c.UserContext(), postID, voteType)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"postId":     postID,
		"voteType":   voteType,
		"totalVotes": total,
		"threshold":  s.voteService.Threshold(),
	})
}
