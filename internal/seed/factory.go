// Package seed creates demo authors and posts for development databases.
package seed

import (
	"fmt"
	"html"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/content"
	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded author.
const DefaultPassword = "password123"

// Post kinds produced by the factory.
const (
	KindText     = "text"
	KindCover    = "cover"
	KindVideo    = "video"
	KindMarkdown = "markdown"
)

// Options tunes what the factory builds.
type Options struct {
	// DryRun builds entities with synthetic IDs and writes nothing.
	DryRun bool
	// MaxDays spreads created_at over this many past days.
	MaxDays int
	// BcryptCost for the shared author password; 0 means bcrypt.DefaultCost.
	BcryptCost int
}

// Factory builds authors and posts and persists them.
type Factory struct {
	db     *gorm.DB
	opts   Options
	rng    *rand.Rand
	hash   string
	nextID uint
}

// NewFactory creates a Factory bound to db. db may be nil in DryRun mode.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	// every author shares one hash; hashing per user dominates seeding time
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{
		db:     db,
		opts:   opts,
		rng:    rand.New(rand.NewSource(seed)),
		hash:   string(hash),
		nextID: 1000,
	}, nil
}

// BuildUser returns an unsaved author. n keeps emails unique within a run.
func (f *Factory) BuildUser(n int) *models.User {
	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	bio := gofakeit.Sentence(12)
	picture := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID())

	return &models.User{
		Email:          fmt.Sprintf("%s.%s%d@%s", strings.ToLower(first), strings.ToLower(last), n, gofakeit.DomainName()),
		Password:       f.hash,
		FirstName:      first,
		LastName:       last,
		Telephone:      gofakeit.Phone(),
		Bio:            &bio,
		ProfilePicture: &picture,
	}
}

// BuildPost returns an unsaved post of the given kind by author. Content
// goes through the same sanitizer as API writes.
func (f *Factory) BuildPost(author *models.User, kind string) *models.Post {
	post := &models.Post{
		Title:     strings.TrimSuffix(gofakeit.Sentence(f.rng.Intn(6)+3), "."),
		UserID:    author.ID,
		CreatedAt: f.createdAt(),
	}

	switch kind {
	case KindMarkdown:
		md := fmt.Sprintf("## %s\n\n%s\n\n- %s\n- %s\n\n> %s\n",
			gofakeit.Sentence(4), gofakeit.Paragraph(1, 4, 10, " "),
			gofakeit.Sentence(5), gofakeit.Sentence(5), gofakeit.Quote())
		rendered, err := content.Markdown(md)
		if err != nil {
			rendered = htmlParagraphs(f.rng.Intn(3) + 2)
		}
		post.Content = rendered
	case KindCover:
		post.Content = htmlParagraphs(f.rng.Intn(3) + 2)
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", gofakeit.UUID())
	case KindVideo:
		ids := []string{"dQw4w9WgXcQ", "9bZkp7q19f0", "3JZ_D3ELwOQ", "L_jWHffIx5E"}
		post.Content = htmlParagraphs(1)
		post.VideoURL = "https://www.youtube.com/watch?v=" + ids[f.rng.Intn(len(ids))]
	default:
		post.Content = htmlParagraphs(f.rng.Intn(4) + 2)
	}
	post.Content = content.Sanitize(post.Content)
	return post
}

func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func htmlParagraphs(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(gofakeit.Paragraph(1, 4, 12, " ")))
		b.WriteString("</p>")
	}
	return b.String()
}

// CreateUsers persists n authors.
func (f *Factory) CreateUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, f.BuildUser(i))
	}
	if f.opts.DryRun {
		for _, u := range users {
			f.nextID++
			u.ID = f.nextID
		}
		return users, nil
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := f.db.Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreatePosts persists posts in one batch.
func (f *Factory) CreatePosts(posts []*models.Post) error {
	if f.opts.DryRun || len(posts) == 0 {
		return nil
	}
	return f.db.Omit("User").CreateInBatches(&posts, 100).Error
}
