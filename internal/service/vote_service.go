package service

import (
	"context"

	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/observability"
	"pipal/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// VoteService casts votes and reports tallies.
type VoteService struct {
	votes     repository.VoteRepository
	publisher Publisher
	threshold int
}

// CastVoteInput is one ballot request.
type CastVoteInput struct {
	UserID   uuid.UUID
	PostID   uuid.UUID
	VoteType models.VoteType
	Metadata models.RawJSON
}

// VoteUpdatePayload is published on the post topic after every accepted cast.
type VoteUpdatePayload struct {
	PostID     uuid.UUID       `json:"postId"`
	VoteType   models.VoteType `json:"voteType"`
	TotalVotes int             `json:"totalVotes"`
}

// ThresholdCrossedPayload is published once per crossing.
type ThresholdCrossedPayload struct {
	PostID     uuid.UUID `json:"postId"`
	TotalVotes int       `json:"totalVotes"`
	Threshold  int       `json:"threshold"`
}

// NewVoteService returns a VoteService. threshold is the live_session tally that requests a session.
func NewVoteService(votes repository.VoteRepository, publisher Publisher, threshold int) *VoteService {
	return &VoteService{
		votes:     votes,
		publisher: publisherOrNoop(publisher),
		threshold: threshold,
	}
}

// Threshold returns the configured vote requirement.
func (s *VoteService) Threshold() int {
	return s.threshold
}

func (s *VoteService) CastVote(ctx context.Context, in CastVoteInput) (result *models.VoteResult, err error) {
	if in.VoteType == "" {
		in.VoteType = models.VoteTypeLiveSession
	}
	if !in.VoteType.Valid() {
		return nil, models.NewValidationError("Invalid vote type")
	}

	ctx, span := observability.StartServiceSpan(ctx, "VoteService", "CastVote",
		attribute.String("post.id", in.PostID.String()),
		attribute.String("vote.type", string(in.VoteType)),
	)
	defer func() { observability.EndSpan(span, err) }()

	vote := &models.Vote{
		UserID:   in.UserID,
		PostID:   in.PostID,
		VoteType: in.VoteType,
		Metadata: in.Metadata,
	}
	result, err = s.votes.Cast(ctx, vote, s.threshold)
	if err != nil {
		if models.HasCode(err, models.CodeDuplicateVote) {
			observability.DuplicateVotesTotal.WithLabelValues(string(in.VoteType)).Inc()
		}
		return nil, err
	}
	observability.VotesCastTotal.WithLabelValues(string(in.VoteType)).Inc()

	if result.ThresholdCrossed {
		observability.ThresholdCrossingsTotal.Inc()
		s.publisher.Publish(ctx, notifications.GlobalTopic, notifications.Event{
			Type: notifications.EventThresholdCrossed,
			Payload: ThresholdCrossedPayload{
				PostID:     in.PostID,
				TotalVotes: result.TotalVotes,
				Threshold:  s.threshold,
			},
		})
	}

	s.publisher.Publish(ctx, notifications.PostTopic(in.PostID), notifications.Event{
		Type: notifications.EventVoteUpdate,
		Payload: VoteUpdatePayload{
			PostID:     in.PostID,
			VoteType:   in.VoteType,
			TotalVotes: result.TotalVotes,
		},
	})
	return result, nil
}

// Tally counts votes of one kind for a post straight from the ledger.
func (s *VoteService) Tally(ctx context.Context, postID uuid.UUID, voteType models.VoteType) (int64, error) {
	if voteType == "" {
		voteType = models.VoteTypeLiveSession
	}
	if !voteType.Valid() {
		return 0, models.NewValidationError("Invalid vote type")
	}
	return s.votes.Tally(ctx, postID, voteType)
}

// VoterPage is one page of a voter listing.
type VoterPage struct {
	Voters     []models.Voter `json:"voters"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// ListVoters returns one page of voters, newest first. cursor is the NextCursor of
// the previous page or empty for the first page.
func (s *VoteService) ListVoters(ctx context.Context, postID uuid.UUID, voteType models.VoteType, cursor string, limit int) (*VoterPage, error) {
	if voteType == "" {
		voteType = models.VoteTypeLiveSession
	}
	if !voteType.Valid() {
		return nil, models.NewValidationError("Invalid vote type")
	}
	after, err := repository.DecodeVoterCursor(cursor)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	if limit <= 0 {
		limit = 20
	}

	voters, err := s.votes.ListVoters(ctx, postID, voteType, after, limit)
	if err != nil {
		return nil, err
	}
	page := &VoterPage{Voters: voters}
	if page.Voters == nil {
		page.Voters = []models.Voter{}
	}
	if len(voters) == limit {
		page.NextCursor = repository.CursorAfter(voters[len(voters)-1]).Encode()
	}
	return page, nil
}

// Voters returns a lazy iterator over every voter of a post, newest first.
// Each call starts a fresh pass.
func (s *VoteService) Voters(postID uuid.UUID, voteType models.VoteType) *VoterIterator {
	if voteType == "" {
		voteType = models.VoteTypeLiveSession
	}
	return &VoterIterator{repo: s.votes, postID: postID, voteType: voteType, pageSize: 50}
}

// VoterIterator walks a voter listing page by page.
type VoterIterator struct {
	repo     repository.VoteRepository
	postID   uuid.UUID
	voteType models.VoteType
	pageSize int

	buf     []models.Voter
	after   *repository.VoterCursor
	current models.Voter
	done    bool
	err     error
}

// Next advances to the next voter. It returns false at the end or on error.
func (it *VoterIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if len(it.buf) == 0 {
		if it.done {
			return false
		}
		page, err := it.repo.ListVoters(ctx, it.postID, it.voteType, it.after, it.pageSize)
		if err != nil {
			it.err = err
			return false
		}
		if len(page) < it.pageSize {
			it.done = true
		}
		if len(page) == 0 {
			return false
		}
		it.buf = page
		it.after = repository.CursorAfter(page[len(page)-1])
	}
	it.current, it.buf = it.buf[0], it.buf[1:]
	return true
}

// Voter returns the voter Next advanced to.
func (it *VoterIterator) Voter() models.Voter {
	return it.current
}

// Err returns the error that stopped iteration, if any.
func (it *VoterIterator) Err() error {
	return it.err
}
