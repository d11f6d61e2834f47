// Command seed populates the database with demo authors and posts.
package main

import (
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of authors to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Delete existing posts and users first")
	maxDays := flag.Int("days", 90, "Spread post dates over this many past days")
	dryRun := flag.Bool("dry-run", false, "Build everything but write nothing")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, clean=%v, dry-run=%v\n", *numUsers, *numPosts, *shouldClean, *dryRun)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	s, err := seed.NewSeeder(db, seed.Options{DryRun: *dryRun, MaxDays: *maxDays})
	if err != nil {
		log.Fatalf("Seeder init failed: %v", err)
	}

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Seed(*numUsers, *numPosts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d authors and %d posts %v\n", len(res.Users), len(res.Posts), res.ByKind)
	log.Printf("All seeded authors share the password: %s\n", seed.DefaultPassword)
}
