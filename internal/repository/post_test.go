package repository

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := testutil.OpenSQLite(t)
	author := testutil.CreateUser(t, db, "a@x.com", "secret123")
	repo := NewPostRepository(db, nil)
	ctx := context.Background()

	post := &models.Post{Title: "T", Content: "<p>hi</p>", UserID: author.ID}
	require.NoError(t, repo.Create(ctx, post))
	assert.Len(t, post.ID, 36)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	require.NotNil(t, got.User)
	assert.Equal(t, "a@x.com", got.User.Email)
	assert.Empty(t, got.User.Password)
	assert.Empty(t, got.User.Telephone)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_CreateRejectsUnknownAuthor(t *testing.T) {
	db := testutil.OpenSQLite(t)
	repo := NewPostRepository(db, nil)
	ctx := context.Background()

	err := repo.Create(ctx, &models.Post{Title: "T", Content: "x", UserID: 404})
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.OpenSQLite(t)
	author := testutil.CreateUser(t, db, "a@x.com", "secret123")
	repo := NewPostRepository(db, nil)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		p := &models.Post{Title: title, Content: "c", UserID: author.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, repo.Create(ctx, p))
	}

	all, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"third", "second", "first"}, titles(all))
	assert.NotNil(t, all[0].User)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, titles(page))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPostRepository_ListEmpty(t *testing.T) {
	repo := NewPostRepository(testutil.OpenSQLite(t), nil)
	posts, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestPostRepository_GetByIDIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := testutil.OpenSQLite(t)
	author := testutil.CreateUser(t, db, "a@x.com", "secret123")
	repo := NewPostRepository(db, cache.New(client))
	ctx := context.Background()

	post := &models.Post{Title: "cached", Content: "c", UserID: author.ID}
	require.NoError(t, repo.Create(ctx, post))

	_, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.PostKey(post.ID)))

	// served from Redis even after the row disappears
	require.NoError(t, db.Exec("DELETE FROM posts").Error)
	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached", got.Title)
}

func TestPostRepository_CreateInvalidatesFeed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := testutil.OpenSQLite(t)
	author := testutil.CreateUser(t, db, "a@x.com", "secret123")
	repo := NewPostRepository(db, cache.New(client))
	ctx := context.Background()

	require.NoError(t, mr.Set(cache.FeedKey, "{}"))
	require.NoError(t, repo.Create(ctx, &models.Post{Title: "T", Content: "c", UserID: author.ID}))
	assert.False(t, mr.Exists(cache.FeedKey))
}

func titles(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func TestPostRepository_GetByIDRefreshesAuthor(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := testutil.OpenSQLite(t)
	author := testutil.CreateUser(t, db, "a@x.com", "secret123")
	repo := NewPostRepository(db, cache.New(client))
	ctx := context.Background()

	post := &models.Post{Title: "T", Content: "c", UserID: author.ID}
	require.NoError(t, repo.Create(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "Ada", got.User.FirstName)

	cached, err := mr.Get(cache.PostKey(post.ID))
	require.NoError(t, err)
	assert.NotContains(t, cached, "Lovelace")

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", author.ID).Update("first_name", "Augusta").Error)

	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "Augusta", got.User.FirstName)
	assert.Empty(t, got.User.Telephone)
}

func TestPostRepository_ListByUser(t *testing.T) {
	db := testutil.OpenSQLite(t)
	ada := testutil.CreateUser(t, db, "a@x.com", "secret123")
	grace := testutil.CreateUser(t, db, "g@x.com", "secret123")
	repo := NewPostRepository(db, nil)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"a1", "a2", "a3"} {
		require.NoError(t, repo.Create(ctx, &models.Post{Title: title, Content: "c", UserID: ada.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}
	require.NoError(t, repo.Create(ctx, &models.Post{Title: "g1", Content: "c", UserID: grace.ID, CreatedAt: base.Add(5 * time.Hour)}))

	mine, err := repo.ListByUser(ctx, ada.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a2", "a1"}, titles(mine))

	page, err := repo.ListByUser(ctx, ada.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, titles(page))

	n, err := repo.CountByUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	none, err := repo.ListByUser(ctx, 999, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
	n, err = repo.CountByUser(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, n)
}
