package repository

import (
	"context"
	"errors"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// authorColumns are the user columns embedded in post responses. Credentials
// and contact details stay out.
var authorColumns = []string{"id", "email", "first_name", "last_name", "bio", "profile_picture", "created_at", "updated_at"}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns posts newest first. A non-positive limit returns every post.
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Count(ctx context.Context) (int64, error)
	// ListByUser returns one author's posts newest first, without the author.
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewPostRepository creates a new post repository. c may be nil.
func NewPostRepository(db *gorm.DB, c *cache.Cache) PostRepository {
	return &postRepository{db: db, cache: c}
}

func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("User", func(tx *gorm.DB) *gorm.DB {
		return tx.Select(authorColumns)
	})
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", "posts")
	defer func() { observability.EndSpan(span, err) }()

	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		if isForeignKeyError(err) {
			return models.NewUnauthorizedError("Author does not exist")
		}
		return models.NewInternalError(err)
	}
	r.cache.InvalidateFeed(ctx)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (_ *models.Post, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", "posts")
	defer func() { observability.EndSpan(span, err) }()

	// only the immutable post row is cached; the author can change
	var post models.Post
	err = r.cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}

	post.User = nil
	var author models.User
	err = r.db.WithContext(ctx).Select(authorColumns).Where("id = ?", post.UserID).First(&author).Error
	switch {
	case err == nil:
		post.User = &author
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = nil
	default:
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) (_ []*models.Post, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "List", "posts")
	defer func() { observability.EndSpan(span, err) }()

	return findNewestFirst(withAuthor(r.db.WithContext(ctx)), limit, offset)
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) (_ []*models.Post, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ListByUser", "posts")
	defer func() { observability.EndSpan(span, err) }()

	return findNewestFirst(r.db.WithContext(ctx).Where("user_id = ?", userID), limit, offset)
}

func findNewestFirst(q *gorm.DB, limit, offset int) ([]*models.Post, error) {
	q = q.Order("created_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	posts := make([]*models.Post, 0)
	if err := q.Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Count(ctx context.Context) (_ int64, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Count", "posts")
	defer func() { observability.EndSpan(span, err) }()

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *postRepository) CountByUser(ctx context.Context, userID uint) (_ int64, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "CountByUser", "posts")
	defer func() { observability.EndSpan(span, err) }()

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
