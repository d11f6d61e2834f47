package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/content"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// Content formats accepted by CreatePost.
const (
	FormatHTML     = "html"
	FormatDocument = "document"
	FormatMarkdown = "markdown"
)

const (
	DefaultExcerptLength = 120
	// Inline data-URI images make posts large; the body limit is the real cap.
	maxContentBytes = 16 << 20

	feedSideCount   = 4
	feedRecentCount = 5
	feedSize        = 1 + feedSideCount + feedRecentCount
)

type PostService struct {
	postRepo      repository.PostRepository
	userRepo      repository.UserRepository
	cache         *cache.Cache
	excerptLength int
}

type CreatePostInput struct {
	Title string
	// Content is HTML, or Markdown when Format is FormatMarkdown.
	Content string
	// Document is an editor document, used when Format is FormatDocument.
	Document json.RawMessage
	Format   string
	ImageURL string
	VideoURL string
}

type ListPostsInput struct {
	Limit  int
	Offset int
}

// PostView is a post with its content prepared for display.
type PostView struct {
	Post        *models.Post `json:"post"`
	ContentHTML string       `json:"content_html"`
	Excerpt     string       `json:"excerpt"`
}

// AuthorPosts is a page of one author's posts and how many they have in all.
type AuthorPosts struct {
	Posts []*models.Post `json:"posts"`
	Total int64          `json:"total"`
}

// FeedItem is a post summary on the home feed.
type FeedItem struct {
	*models.Post
	Excerpt string `json:"excerpt"`
}

// Feed is the home page layout: the newest post, the next four beside it,
// then the five after those.
type Feed struct {
	Hero   *FeedItem  `json:"hero"`
	Side   []FeedItem `json:"side"`
	Recent []FeedItem `json:"recent"`
}

// NewPostService builds the content store service. c may be nil and a
// non-positive excerptLength falls back to DefaultExcerptLength.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, c *cache.Cache, excerptLength int) *PostService {
	if excerptLength <= 0 {
		excerptLength = DefaultExcerptLength
	}
	return &PostService{
		postRepo:      postRepo,
		userRepo:      userRepo,
		cache:         c,
		excerptLength: excerptLength,
	}
}

// CreatePost stores a post authored by author. A nil or unresolvable author
// is rejected before anything is written. Content is always sanitized.
func (s *PostService) CreatePost(ctx context.Context, author *models.Identity, in CreatePostInput) (_ *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if author == nil || author.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	user, err := s.userRepo.GetByID(ctx, author.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Author does not exist")
		}
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.ImageURL != "" && !content.IsSafeImageURL(in.ImageURL) {
		return nil, models.NewValidationError("Invalid cover image reference")
	}
	if in.VideoURL != "" && !content.IsSafeVideoURL(in.VideoURL) {
		return nil, models.NewValidationError("Invalid video URL")
	}

	format, body, err := prepareContent(in)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    in.Title,
		Content:  body,
		ImageURL: in.ImageURL,
		VideoURL: in.VideoURL,
		UserID:   user.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	post.User = publicAuthor(user)

	middleware.PostsCreated.WithLabelValues(format).Inc()
	return post, nil
}

// prepareContent turns the submitted body into sanitized HTML.
func prepareContent(in CreatePostInput) (format, html string, err error) {
	format = strings.ToLower(strings.TrimSpace(in.Format))
	if format == "" {
		format = FormatHTML
		if len(in.Document) > 0 && strings.TrimSpace(in.Content) == "" {
			format = FormatDocument
		}
	}

	if len(in.Content) > maxContentBytes || len(in.Document) > maxContentBytes {
		return "", "", models.NewValidationError("Content too large")
	}

	switch format {
	case FormatHTML:
		html = content.Sanitize(in.Content)
	case FormatDocument:
		serialized, serr := content.SerializeJSON(in.Document)
		if serr != nil {
			if errors.Is(serr, content.ErrInvalidDocument) {
				return "", "", models.NewValidationError(serr.Error())
			}
			return "", "", models.NewInternalError(serr)
		}
		html = content.Sanitize(serialized)
	case FormatMarkdown:
		converted, cerr := content.Markdown(in.Content)
		if cerr != nil {
			return "", "", models.NewValidationError(cerr.Error())
		}
		html = converted
	default:
		return "", "", models.NewValidationError("Unsupported content format")
	}

	if strings.TrimSpace(html) == "" {
		return "", "", models.NewValidationError("Content is required")
	}
	return format, html, nil
}

// ListPosts returns posts newest first. A non-positive Limit returns all.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (_ []*models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ListPosts")
	defer func() { observability.EndSpan(span, err) }()

	if in.Offset < 0 {
		in.Offset = 0
	}
	return s.postRepo.List(ctx, in.Limit, in.Offset)
}

// ListByAuthor returns the caller's own posts newest first.
func (s *PostService) ListByAuthor(ctx context.Context, author *models.Identity, in ListPostsInput) (_ *AuthorPosts, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ListByAuthor")
	defer func() { observability.EndSpan(span, err) }()

	if author == nil || author.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if in.Offset < 0 {
		in.Offset = 0
	}

	posts, err := s.postRepo.ListByUser(ctx, author.UserID, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	total, err := s.postRepo.CountByUser(ctx, author.UserID)
	if err != nil {
		return nil, err
	}
	return &AuthorPosts{Posts: posts, Total: total}, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (_ *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "GetPost")
	defer func() { observability.EndSpan(span, err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.NewValidationError("Post id is required")
	}
	return s.postRepo.GetByID(ctx, id)
}

// GetPostView loads a post and re-renders its stored HTML through the
// sanitizer, so rows written before sanitization existed display safely.
func (s *PostService) GetPostView(ctx context.Context, id string) (*PostView, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	frag, err := content.Render(post.Content)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	safe := frag.HTML()
	return &PostView{
		Post:        post,
		ContentHTML: safe,
		Excerpt:     content.Excerpt(safe, s.excerptLength),
	}, nil
}

// Feed returns the home page slices, cached briefly.
func (s *PostService) Feed(ctx context.Context) (_ *Feed, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Feed")
	defer func() { observability.EndSpan(span, err) }()

	var feed Feed
	err = s.cache.Aside(ctx, cache.FeedKey, &feed, cache.FeedTTL, func() error {
		posts, err := s.postRepo.List(ctx, feedSize, 0)
		if err != nil {
			return err
		}
		feed = s.buildFeed(posts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

func (s *PostService) buildFeed(posts []*models.Post) Feed {
	feed := Feed{Side: []FeedItem{}, Recent: []FeedItem{}}
	for i, p := range posts {
		item := FeedItem{Post: p, Excerpt: content.Excerpt(p.Content, s.excerptLength)}
		switch {
		case i == 0:
			feed.Hero = &item
		case i <= feedSideCount:
			feed.Side = append(feed.Side, item)
		case i < feedSize:
			feed.Recent = append(feed.Recent, item)
		}
	}
	return feed
}

// publicAuthor copies the fields of u that may appear next to a post.
func publicAuthor(u *models.User) *models.User {
	return &models.User{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
