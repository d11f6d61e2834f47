package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthor = &models.User{ID: 7, Email: "a@x.com", FirstName: "Ada", LastName: "Lovelace", Telephone: "0612345678", Password: "$2a$hash"}

func TestCreatePost_RequiresIdentity(t *testing.T) {
	writes := 0
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, _ *models.Post) error {
		writes++
		return nil
	}
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), nil, 0)
	in := CreatePostInput{Title: "T", Content: "<p>hi</p>"}

	_, err := svc.CreatePost(context.Background(), nil, in)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = svc.CreatePost(context.Background(), &models.Identity{}, in)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	_, err = svc.CreatePost(context.Background(), &models.Identity{UserID: 99, Email: "ghost@x.com"}, in)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	assert.Zero(t, writes)
}

func TestCreatePost_SanitizesContent(t *testing.T) {
	var stored *models.Post
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, p *models.Post) error {
		stored = p
		return nil
	}
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), nil, 0)

	post, err := svc.CreatePost(context.Background(), &models.Identity{UserID: 7}, CreatePostInput{
		Title:    "  T  ",
		Content:  `<p onclick="x()">hi<script>alert(1)</script></p>`,
		ImageURL: "/uploads/cover.png",
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "T", stored.Title)
	assert.Equal(t, "<p>hi</p>", stored.Content)
	assert.Equal(t, uint(7), stored.UserID)

	require.NotNil(t, post.User)
	assert.Equal(t, "a@x.com", post.User.Email)
	assert.Empty(t, post.User.Password)
	assert.Empty(t, post.User.Telephone)
}

func TestCreatePost_Formats(t *testing.T) {
	var stored *models.Post
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, p *models.Post) error {
		stored = p
		return nil
	}
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), nil, 0)
	author := &models.Identity{UserID: 7}
	ctx := context.Background()

	doc := json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"bold","marks":[{"type":"bold"}]}]}]}`)
	_, err := svc.CreatePost(ctx, author, CreatePostInput{Title: "doc", Document: doc})
	require.NoError(t, err)
	assert.Equal(t, "<p><strong>bold</strong></p>", stored.Content)

	_, err = svc.CreatePost(ctx, author, CreatePostInput{Title: "md", Content: "## Sub\n\n*it*", Format: "markdown"})
	require.NoError(t, err)
	assert.Contains(t, stored.Content, "<h2>Sub</h2>")
	assert.Contains(t, stored.Content, "<em>it</em>")
}

func TestCreatePost_Validation(t *testing.T) {
	repo := noopPostRepo()
	repo.createFn = func(_ context.Context, _ *models.Post) error {
		t.Fatal("create must not be called for invalid input")
		return nil
	}
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), nil, 0)
	author := &models.Identity{UserID: 7}

	tests := []struct {
		name string
		in   CreatePostInput
	}{
		{"missing title", CreatePostInput{Content: "<p>x</p>"}},
		{"missing content", CreatePostInput{Title: "T"}},
		{"content only script", CreatePostInput{Title: "T", Content: "<script>alert(1)</script>"}},
		{"unsafe cover", CreatePostInput{Title: "T", Content: "<p>x</p>", ImageURL: "javascript:alert(1)"}},
		{"data video", CreatePostInput{Title: "T", Content: "<p>x</p>", VideoURL: "data:video/mp4;base64,AAAA"}},
		{"unknown format", CreatePostInput{Title: "T", Content: "x", Format: "rtf"}},
		{"bad document", CreatePostInput{Title: "T", Document: json.RawMessage(`{"type":"paragraph"}`), Format: "document"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), author, tt.in)
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
		})
	}
}

func TestCreatePost_AppearsFirstInList(t *testing.T) {
	db := testutil.OpenSQLite(t)
	author := testutil.CreateUser(t, db, "a@x.com", "secret123")
	svc := NewPostService(repository.NewPostRepository(db, nil), repository.NewUserRepository(db), nil, 0)
	ctx := context.Background()

	older := &models.Post{Title: "older", Content: "<p>o</p>", UserID: author.ID, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, db.Create(older).Error)

	created, err := svc.CreatePost(ctx, &models.Identity{UserID: author.ID, Email: author.Email}, CreatePostInput{Title: "T", Content: "<p>hi</p>"})
	require.NoError(t, err)

	posts, err := svc.ListPosts(ctx, ListPostsInput{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, created.ID, posts[0].ID)
	assert.Equal(t, "older", posts[1].Title)

	got, err := svc.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", got.Content)

	_, err = svc.GetPost(ctx, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	_, err = svc.GetPost(ctx, " ")
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}

func TestGetPostView_ReRendersStoredContent(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id string) (*models.Post, error) {
		// written before sanitize-on-write existed
		return &models.Post{ID: id, Title: "legacy", Content: `<p>Hello <b>World</b></p><img src=x onerror=alert(1)>`}, nil
	}
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), nil, 5)

	view, err := svc.GetPostView(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, `<p>Hello <b>World</b></p><img src="x"/>`, view.ContentHTML)
	assert.Equal(t, "Hello…", view.Excerpt)
	assert.Equal(t, "legacy", view.Post.Title)
}

func TestFeed_Slices(t *testing.T) {
	posts := make([]*models.Post, 0, 12)
	for i := 0; i < 12; i++ {
		posts = append(posts, &models.Post{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("post %d", i), Content: "<p>Some words here</p>"})
	}
	var gotLimit int
	repo := noopPostRepo()
	repo.listFn = func(_ context.Context, limit, _ int) ([]*models.Post, error) {
		gotLimit = limit
		return posts[:limit], nil
	}
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), nil, 4)

	feed, err := svc.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit)
	require.NotNil(t, feed.Hero)
	assert.Equal(t, "p0", feed.Hero.ID)
	assert.Equal(t, "Some…", feed.Hero.Excerpt)
	require.Len(t, feed.Side, 4)
	assert.Equal(t, "p1", feed.Side[0].ID)
	assert.Equal(t, "p4", feed.Side[3].ID)
	require.Len(t, feed.Recent, 5)
	assert.Equal(t, "p5", feed.Recent[0].ID)
	assert.Equal(t, "p9", feed.Recent[4].ID)
}

func TestFeed_EmptyAndCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	repo := noopPostRepo()
	repo.listFn = func(_ context.Context, _, _ int) ([]*models.Post, error) {
		calls++
		return []*models.Post{}, nil
	}
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), cache.New(client), 0)

	feed, err := svc.Feed(context.Background())
	require.NoError(t, err)
	assert.Nil(t, feed.Hero)
	assert.Empty(t, feed.Side)
	assert.Empty(t, feed.Recent)

	_, err = svc.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(cache.FeedKey))
}

func TestListByAuthor(t *testing.T) {
	repo := noopPostRepo()
	var gotUser uint
	var gotLimit, gotOffset int
	repo.listByUserFn = func(_ context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
		gotUser, gotLimit, gotOffset = userID, limit, offset
		return []*models.Post{{ID: "p1", Title: "mine", UserID: userID}}, nil
	}
	repo.countByUserFn = func(_ context.Context, _ uint) (int64, error) { return 4, nil }
	svc := NewPostService(repo, knownAuthorRepo(testAuthor), nil, 0)
	ctx := context.Background()

	_, err := svc.ListByAuthor(ctx, nil, ListPostsInput{})
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))

	out, err := svc.ListByAuthor(ctx, &models.Identity{UserID: testAuthor.ID, Email: testAuthor.Email}, ListPostsInput{Limit: 1, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, testAuthor.ID, gotUser)
	assert.Equal(t, 1, gotLimit)
	assert.Zero(t, gotOffset)
	require.Len(t, out.Posts, 1)
	assert.Equal(t, int64(4), out.Total)
}
