// Command main runs the database seeder for pipal.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"pipal/internal/bootstrap"
	"pipal/internal/config"
	"pipal/internal/middleware"
	"pipal/internal/models"
	"pipal/internal/seed"
)

func main() {
	sellers := flag.Int("sellers", 3, "Number of sellers to create")
	buyers := flag.Int("buyers", 20, "Number of buyers to create")
	posts := flag.Int("posts", 2, "Posts (with a product each) per seller")
	votes := flag.Int("votes", 8, "live_session votes cast on every post")
	clean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("rand-seed", 0, "Fixed random seed for reproducible data")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d sellers, %d buyers, %d posts per seller, %d votes per post, clean=%v",
		*sellers, *buyers, *posts, *votes, *clean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	res, err := seed.NewSeeder(rt.DB, seed.Options{
		Sellers:        *sellers,
		Buyers:         *buyers,
		PostsPerSeller: *posts,
		VotesPerPost:   *votes,
		Threshold:      cfg.VoteThreshold,
		Clean:          *clean,
		RandSeed:       *randSeed,
	}).Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	ttl := time.Duration(cfg.JWTTTLHours) * time.Hour
	log.Println("Demo accounts (password: " + seed.DefaultPassword + "):")
	demo := make([]*models.User, 0, 4)
	demo = append(demo, res.Sellers[:min(2, len(res.Sellers))]...)
	demo = append(demo, res.Buyers[:min(2, len(res.Buyers))]...)
	for _, u := range demo {
		token, err := middleware.IssueToken(cfg.JWTSecret, u.ID, u.Role, ttl)
		if err != nil {
			log.Fatalf("❌ Token issue failed: %v", err)
		}
		log.Printf("  %-6s %s\n         token: %s", u.Role, u.Email, token)
	}
	for _, p := range res.Posts {
		log.Printf("  post %s by %s: %q", p.ID, p.UserID, p.Caption)
	}

	log.Println("✨ All done! Your database is now populated with demo data.")
}
