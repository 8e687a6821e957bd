package seed

import (
	"context"
	"fmt"
	"log/slog"

	"pipal/internal/middleware"
	"pipal/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	Sellers        int
	Buyers         int
	PostsPerSeller int
	// VotesPerPost is capped at Buyers.
	VotesPerPost int
	Threshold    int
	Clean        bool
	Password     string
	// RandSeed makes the fake data reproducible when non-zero.
	RandSeed int64
}

// Result lists what a run created.
type Result struct {
	Sellers  []*models.User
	Buyers   []*models.User
	Products []*models.Product
	Posts    []*models.Post
}

// Seeder populates a database with demo marketplace data.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

// NewSeeder fills unset options with small demo defaults.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.Sellers <= 0 {
		opts.Sellers = 3
	}
	if opts.Buyers <= 0 {
		opts.Buyers = 20
	}
	if opts.PostsPerSeller <= 0 {
		opts.PostsPerSeller = 2
	}
	if opts.VotesPerPost > opts.Buyers {
		opts.VotesPerPost = opts.Buyers
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 10
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	return &Seeder{db: db, opts: opts}
}

// Run seeds sellers with products and posts, buyers, and votes on every post.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if s.opts.Clean {
		if err := ClearAll(ctx, s.db); err != nil {
			return nil, err
		}
	}

	f, err := NewFactory(s.db, s.opts.Password, s.opts.RandSeed)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i := 0; i < s.opts.Buyers; i++ {
		buyer, err := f.CreateUser(ctx, models.RoleBuyer)
		if err != nil {
			return nil, err
		}
		res.Buyers = append(res.Buyers, buyer)
	}

	for i := 0; i < s.opts.Sellers; i++ {
		seller, err := f.CreateUser(ctx, models.RoleSeller)
		if err != nil {
			return nil, err
		}
		res.Sellers = append(res.Sellers, seller)

		for j := 0; j < s.opts.PostsPerSeller; j++ {
			product, err := f.CreateProduct(ctx, seller)
			if err != nil {
				return nil, err
			}
			post, err := f.CreatePost(ctx, seller, product)
			if err != nil {
				return nil, err
			}
			if err := f.CastVotes(ctx, post, res.Buyers[:s.opts.VotesPerPost], s.opts.Threshold); err != nil {
				return nil, err
			}
			res.Products = append(res.Products, product)
			res.Posts = append(res.Posts, post)
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("sellers", len(res.Sellers)),
		slog.Int("buyers", len(res.Buyers)),
		slog.Int("posts", len(res.Posts)),
	)
	return res, nil
}

// ClearAll deletes every row of the marketplace tables, children first.
func ClearAll(ctx context.Context, db *gorm.DB) error {
	tables := []any{
		&models.Like{},
		&models.Follow{},
		&models.OrderItem{},
		&models.Order{},
		&models.LiveSession{},
		&models.Vote{},
		&models.Post{},
		&models.Product{},
		&models.User{},
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
				return fmt.Errorf("clear %T: %w", table, err)
			}
		}
		return nil
	})
}
