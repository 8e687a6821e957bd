// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"

	"pipal/internal/models"
	"pipal/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	passwordHash string
}

// NewFactory creates a Factory. Every user it creates shares password.
// A zero seed picks a random one.
func NewFactory(db *gorm.DB, password string, seed int64) (*Factory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, faker: gofakeit.New(seed), passwordHash: string(hash)}, nil
}

// CreateUser persists a user with a unique fake identity.
func (f *Factory) CreateUser(ctx context.Context, role models.UserRole, overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	handle := strings.ToLower(first + "_" + last)
	handle = handle + "_" + uuid.NewString()[:6]

	user := &models.User{
		Email:           handle + "@example.com",
		Username:        truncate(handle, 50),
		PasswordHash:    f.passwordHash,
		FirstName:       first,
		LastName:        last,
		ProfileImageURL: fmt.Sprintf("https://i.pravatar.cc/300?u=%s", handle),
		Role:            role,
		IsActive:        true,
		IsVerified:      role == models.RoleSeller,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// CreateProduct persists an in-stock product owned by seller.
func (f *Factory) CreateProduct(ctx context.Context, seller *models.User, overrides ...func(*models.Product)) (*models.Product, error) {
	product := &models.Product{
		SellerID:          seller.ID,
		Title:             truncate(f.faker.ProductName(), 255),
		Description:       f.faker.ProductDescription(),
		SKU:               "SKU-" + strings.ToUpper(uuid.NewString()[:8]),
		Price:             f.faker.Price(5, 250),
		InventoryQuantity: f.faker.Number(1, 50),
		Images:            models.RawJSON(fmt.Sprintf(`["https://picsum.photos/seed/%s/800/800"]`, uuid.NewString())),
		IsActive:          true,
	}
	for _, override := range overrides {
		override(product)
	}
	if err := f.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// CreatePost persists a product post. product may be nil.
func (f *Factory) CreatePost(ctx context.Context, seller *models.User, product *models.Product, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		UserID:   seller.ID,
		Caption:  truncate(f.faker.Sentence(f.faker.Number(6, 14)), 2200),
		Media:    models.RawJSON(fmt.Sprintf(`[{"type":"image","url":"https://picsum.photos/seed/%s/800/800"}]`, uuid.NewString())),
		Tags:     models.RawJSON(fmt.Sprintf(`[%q,%q]`, f.faker.HipsterWord(), f.faker.HipsterWord())),
		Type:     models.PostTypeProduct,
		IsActive: true,
	}
	if product != nil {
		post.ProductID = &product.ID
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CastVotes records one live_session vote per voter through the vote ledger,
// so tallies and the threshold latch stay consistent.
func (f *Factory) CastVotes(ctx context.Context, post *models.Post, voters []*models.User, threshold int) error {
	votes := repository.NewVoteRepository(f.db)
	for _, voter := range voters {
		_, err := votes.Cast(ctx, &models.Vote{
			UserID:   voter.ID,
			PostID:   post.ID,
			VoteType: models.VoteTypeLiveSession,
		}, threshold)
		if err != nil && !models.HasCode(err, models.CodeDuplicateVote) {
			return fmt.Errorf("cast vote: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
