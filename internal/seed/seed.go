package seed

import (
	"fmt"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Seeder fills a database with demo authors and posts.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// Result summarizes one Seed run.
type Result struct {
	Users  []*models.User
	Posts  []*models.Post
	ByKind map[string]int
}

// NewSeeder creates a Seeder. db may be nil when opts.DryRun is set.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	if db == nil && !opts.DryRun {
		return nil, fmt.Errorf("seed: database required unless dry run")
	}
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// ClearAll removes every post and user. Posts go first because of the
// author foreign key.
func (s *Seeder) ClearAll() error {
	if s.factory.opts.DryRun {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("clear posts: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

// Seed creates numUsers authors and numPosts posts spread across them.
func (s *Seeder) Seed(numUsers, numPosts int) (*Result, error) {
	if numUsers <= 0 {
		return nil, fmt.Errorf("seed: at least one user required")
	}
	if numPosts < 0 {
		numPosts = 0
	}

	users, err := s.factory.CreateUsers(numUsers)
	if err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}

	res := &Result{Users: users, ByKind: make(map[string]int)}
	kinds := kindPlan(numPosts)
	posts := make([]*models.Post, 0, numPosts)
	for i, kind := range kinds {
		author := users[i%len(users)]
		posts = append(posts, s.factory.BuildPost(author, kind))
		res.ByKind[kind]++
	}
	if err := s.factory.CreatePosts(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	res.Posts = posts

	middleware.Logger.Info("seed complete",
		slog.Int("users", len(users)),
		slog.Int("posts", len(posts)),
		slog.Bool("dry_run", s.factory.opts.DryRun))
	return res, nil
}

// kindPlan splits n posts roughly 40% text, 30% cover, 20% markdown and
// the rest video, interleaved so the feed mixes them.
func kindPlan(n int) []string {
	counts := []struct {
		kind string
		n    int
	}{
		{KindCover, n * 30 / 100},
		{KindMarkdown, n * 20 / 100},
		{KindVideo, n * 10 / 100},
	}
	text := n
	for _, c := range counts {
		text -= c.n
	}

	plan := make([]string, 0, n)
	remaining := map[string]int{KindText: text}
	for _, c := range counts {
		remaining[c.kind] = c.n
	}
	order := []string{KindText, KindCover, KindMarkdown, KindText, KindVideo}
	for len(plan) < n {
		for _, k := range order {
			if remaining[k] > 0 && len(plan) < n {
				plan = append(plan, k)
				remaining[k]--
			}
		}
	}
	return plan
}
