package service

import (
	"context"
	"sync"

	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/repository"

	"github.com/google/uuid"
)

type publishedEvent struct {
	Topic string
	Event notifications.Event
}

// recordingPublisher captures every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Event: event})
}

func (p *recordingPublisher) ofType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// voteRepoStub is a stub for repository.VoteRepository.
type voteRepoStub struct {
	castFn       func(context.Context, *models.Vote, int) (*models.VoteResult, error)
	tallyFn      func(context.Context, uuid.UUID, models.VoteType) (int64, error)
	listVotersFn func(context.Context, uuid.UUID, models.VoteType, *repository.VoterCursor, int) ([]models.Voter, error)
}

func (s *voteRepoStub) Cast(ctx context.Context, vote *models.Vote, threshold int) (*models.VoteResult, error) {
	return s.castFn(ctx, vote, threshold)
}
func (s *voteRepoStub) Tally(ctx context.Context, postID uuid.UUID, voteType models.VoteType) (int64, error) {
	return s.tallyFn(ctx, postID, voteType)
}
func (s *voteRepoStub) ListVoters(ctx context.Context, postID uuid.UUID, voteType models.VoteType, after *repository.VoterCursor, limit int) ([]models.Voter, error) {
	return s.listVotersFn(ctx, postID, voteType, after, limit)
}

// liveRepoStub is a stub for repository.LiveSessionRepository.
type liveRepoStub struct {
	createFn     func(context.Context, *models.LiveSession) error
	getByIDFn    func(context.Context, uuid.UUID) (*models.LiveSession, error)
	listFn       func(context.Context, models.LiveSessionStatus, int, int) ([]models.LiveSessionSummary, error)
	transitionFn func(context.Context, uuid.UUID, uuid.UUID, models.LiveSessionStatus, repository.TransitionOptions) (*models.LiveSession, error)
	incrementFn  func(context.Context, uuid.UUID) error
	decrementFn  func(context.Context, uuid.UUID) error
}

func (s *liveRepoStub) Create(ctx context.Context, session *models.LiveSession) error {
	return s.createFn(ctx, session)
}
func (s *liveRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	return s.getByIDFn(ctx, id)
}
func (s *liveRepoStub) List(ctx context.Context, status models.LiveSessionStatus, limit, offset int) ([]models.LiveSessionSummary, error) {
	return s.listFn(ctx, status, limit, offset)
}
func (s *liveRepoStub) Transition(ctx context.Context, id, actorID uuid.UUID, next models.LiveSessionStatus, opts repository.TransitionOptions) (*models.LiveSession, error) {
	return s.transitionFn(ctx, id, actorID, next, opts)
}
func (s *liveRepoStub) IncrementViewers(ctx context.Context, id uuid.UUID) error {
	return s.incrementFn(ctx, id)
}
func (s *liveRepoStub) DecrementViewers(ctx context.Context, id uuid.UUID) error {
	return s.decrementFn(ctx, id)
}

func noopLiveRepo() *liveRepoStub {
	return &liveRepoStub{
		createFn: func(_ context.Context, s *models.LiveSession) error {
			s.ID = uuid.New()
			s.Status = models.LiveSessionScheduled
			return nil
		},
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.LiveSession, error) {
			return &models.LiveSession{ID: id, Status: models.LiveSessionLive}, nil
		},
		listFn: func(_ context.Context, _ models.LiveSessionStatus, _, _ int) ([]models.LiveSessionSummary, error) {
			return nil, nil
		},
		transitionFn: func(_ context.Context, id, actorID uuid.UUID, next models.LiveSessionStatus, _ repository.TransitionOptions) (*models.LiveSession, error) {
			return &models.LiveSession{ID: id, SellerID: actorID, Status: next}, nil
		},
		incrementFn: func(_ context.Context, _ uuid.UUID) error { return nil },
		decrementFn: func(_ context.Context, _ uuid.UUID) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, uuid.UUID) (*models.Post, error)
	listFn        func(context.Context, int, int) ([]*models.Post, error)
	getByUserIDFn func(context.Context, uuid.UUID, int, int) ([]*models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Post, error) {
	return s.getByUserIDFn(ctx, userID, limit, offset)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		},
		listFn:        func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		getByUserIDFn: func(_ context.Context, _ uuid.UUID, _, _ int) ([]*models.Post, error) { return nil, nil },
	}
}

// productRepoStub is a stub for repository.ProductRepository.
type productRepoStub struct {
	createFn       func(context.Context, *models.Product) error
	getByIDFn      func(context.Context, uuid.UUID) (*models.Product, error)
	setInventoryFn func(context.Context, uuid.UUID, uuid.UUID, int) (*models.Product, error)
	listFn         func(context.Context, repository.ProductFilter, int, int) ([]*models.Product, error)
}

func (s *productRepoStub) Create(ctx context.Context, product *models.Product) error {
	return s.createFn(ctx, product)
}
func (s *productRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.getByIDFn(ctx, id)
}
func (s *productRepoStub) SetInventory(ctx context.Context, id, sellerID uuid.UUID, quantity int) (*models.Product, error) {
	return s.setInventoryFn(ctx, id, sellerID, quantity)
}
func (s *productRepoStub) List(ctx context.Context, filter repository.ProductFilter, limit, offset int) ([]*models.Product, error) {
	return s.listFn(ctx, filter, limit, offset)
}

// orderRepoStub is a stub for repository.OrderRepository.
type orderRepoStub struct {
	placeFn       func(context.Context, *models.Order, []repository.OrderLine) error
	getByIDFn     func(context.Context, uuid.UUID) (*models.Order, error)
	listByBuyerFn func(context.Context, uuid.UUID, int, int) ([]models.Order, error)
}

func (s *orderRepoStub) Place(ctx context.Context, order *models.Order, lines []repository.OrderLine) error {
	return s.placeFn(ctx, order, lines)
}
func (s *orderRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.getByIDFn(ctx, id)
}
func (s *orderRepoStub) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return s.listByBuyerFn(ctx, buyerID, limit, offset)
}

// userRepoStub is a stub for repository.UserRepository backed by a map.
type userRepoStub struct {
	byID map[uuid.UUID]*models.User
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	s := &userRepoStub{byID: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *userRepoStub) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}
func (s *userRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}
func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}
func (s *userRepoStub) Create(_ context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byID[user.ID] = user
	return nil
}
func (s *userRepoStub) List(_ context.Context, _, _ int) ([]models.User, error) {
	out := make([]models.User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, *u)
	}
	return out, nil
}
