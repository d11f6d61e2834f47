package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenSQLite(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Env:              "test",
		Port:             "0",
		JWTSecret:        testSecret,
		JWTTTLHours:      1,
		MediaBackend:     "local",
		MediaRoot:        t.TempDir(),
		MediaPublicURL:   "/uploads",
		MediaMaxUploadMB: 1,
		ExcerptLength:    20,
	}
	srv, err := NewServerWithDeps(cfg, db, client, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{srv: srv, app: srv.NewApp(), db: db, mr: mr, cfg: cfg}
}

// do sends req without fiber's default 1s test timeout; bcrypt at the
// default cost can exceed it.
func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.do(t, req)
}

// tokenFor creates a user directly and signs a token for it.
func (e *testEnv) tokenFor(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user := testutil.CreateUser(t, e.db, email, "secret123")
	token, err := e.srv.issueToken(user)
	require.NoError(t, err)
	return user, token
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, path, token string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func signupForm() url.Values {
	return url.Values{
		"firstName": {"Ada"},
		"lastName":  {"Lovelace"},
		"telephone": {"0612345678"},
		"email":     {"ada@example.com"},
		"password":  {"secret123"},
	}
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestAuthorFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, formRequest("/api/auth/signup", signupForm()))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.NotContains(t, string(body), "password")
	assert.NotContains(t, string(body), "$2")

	resp, body = env.doJSON(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "ada@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var signin struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &signin))
	require.NotEmpty(t, signin.Token)
	assert.Equal(t, "ada@example.com", signin.User.Email)

	resp, body = env.doJSON(t, http.MethodPost, "/api/posts", signin.Token, map[string]string{
		"title":   "First",
		"content": `<p>Hello <a href="javascript:alert(1)">there</a> and welcome to the blog</p><script>x()</script>`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "<p>Hello there and welcome to the blog</p>", post.Content)
	require.NotNil(t, post.User)
	assert.Equal(t, "Ada", post.User.FirstName)

	resp, body = env.doJSON(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var posts []models.Post
	require.NoError(t, json.Unmarshal(body, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	resp, body = env.doJSON(t, http.MethodGet, "/api/posts/"+post.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Post        models.Post `json:"post"`
		ContentHTML string      `json:"content_html"`
		Excerpt     string      `json:"excerpt"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, post.Content, view.ContentHTML)
	assert.Equal(t, "Hello there and welc…", view.Excerpt)

	resp, body = env.doJSON(t, http.MethodGet, "/api/feed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var feed struct {
		Hero struct {
			ID      string `json:"id"`
			Excerpt string `json:"excerpt"`
		} `json:"hero"`
		Side   []json.RawMessage `json:"side"`
		Recent []json.RawMessage `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(body, &feed))
	assert.Equal(t, post.ID, feed.Hero.ID)
	assert.Empty(t, feed.Side)
	assert.Empty(t, feed.Recent)
}

func TestSignup_ProfilePictureFile(t *testing.T) {
	env := newTestEnv(t)

	fields := map[string]string{}
	for k, v := range signupForm() {
		fields[k] = v[0]
	}
	req := multipartRequest(t, "/api/auth/signup", "", fields, part{"profilePicture", "me.png", testutil.PNG(t, 8, 8)})
	resp, body := env.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotNil(t, out.User.ProfilePicture)
	assert.True(t, strings.HasPrefix(*out.User.ProfilePicture, "http://example.com/uploads/"), *out.User.ProfilePicture)
	assert.True(t, strings.HasSuffix(*out.User.ProfilePicture, "-me.png"))

	// served back from the local store
	path := strings.TrimPrefix(*out.User.ProfilePicture, "http://example.com")
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignup_Errors(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, formRequest("/api/auth/signup", signupForm()))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	missing := signupForm()
	missing.Del("telephone")
	dataURI := signupForm()
	dataURI.Set("email", "grace@example.com")
	dataURI.Set("profilePicture", "data:image/png;base64,iVBORw0KGgo=")
	unsafe := signupForm()
	unsafe.Set("email", "linus@example.com")
	unsafe.Set("profilePicture", "javascript:alert(1)")

	tests := []struct {
		name     string
		form     url.Values
		status   int
		wantCode string
	}{
		{"duplicate email", signupForm(), http.StatusConflict, models.CodeDuplicateEmail},
		{"missing telephone", missing, http.StatusBadRequest, models.CodeValidation},
		{"unsafe picture", unsafe, http.StatusBadRequest, models.CodeValidation},
		{"data uri picture", dataURI, http.StatusCreated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, formRequest("/api/auth/signup", tt.form))
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			if tt.wantCode != "" {
				var errResp models.ErrorResponse
				require.NoError(t, json.Unmarshal(body, &errResp))
				assert.Equal(t, tt.wantCode, errResp.Code)
			}
		})
	}
}

func TestSignup_RejectedPictureIsNotStored(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "taken@example.com", "secret123")

	fieldsFor := func(mutate func(url.Values)) map[string]string {
		form := signupForm()
		mutate(form)
		fields := map[string]string{}
		for k, v := range form {
			fields[k] = v[0]
		}
		return fields
	}
	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

	tests := []struct {
		name     string
		fields   map[string]string
		file     part
		status   int
		wantCode string
	}{
		{
			name:     "missing password",
			fields:   fieldsFor(func(f url.Values) { f.Del("password") }),
			file:     part{"profilePicture", "me.png", testutil.PNG(t, 8, 8)},
			status:   http.StatusBadRequest,
			wantCode: models.CodeValidation,
		},
		{
			name:     "duplicate email",
			fields:   fieldsFor(func(f url.Values) { f.Set("email", "taken@example.com") }),
			file:     part{"profilePicture", "me.png", testutil.PNG(t, 8, 8)},
			status:   http.StatusConflict,
			wantCode: models.CodeDuplicateEmail,
		},
		{
			name:     "pdf picture",
			fields:   fieldsFor(func(url.Values) {}),
			file:     part{"profilePicture", "cv.pdf", pdf},
			status:   http.StatusBadRequest,
			wantCode: models.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, multipartRequest(t, "/api/auth/signup", "", tt.fields, tt.file))
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.wantCode, errResp.Code)

			entries, err := os.ReadDir(env.cfg.MediaRoot)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}

	var n int64
	require.NoError(t, env.db.Model(&models.User{}).Where("email = ?", "ada@example.com").Count(&n).Error)
	assert.Zero(t, n)
}

func TestSignin_Failures(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "ada@example.com", "secret123")

	tests := []struct {
		name     string
		body     map[string]string
		status   int
		wantCode string
	}{
		{"wrong password", map[string]string{"email": "ada@example.com", "password": "nope-nope"}, http.StatusUnauthorized, models.CodeInvalidCredential},
		{"unknown email", map[string]string{"email": "bob@example.com", "password": "secret123"}, http.StatusUnauthorized, models.CodeInvalidCredential},
		{"missing password", map[string]string{"email": "ada@example.com"}, http.StatusBadRequest, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.doJSON(t, http.MethodPost, "/api/auth/signin", "", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.wantCode, errResp.Code)
			assert.NotContains(t, string(body), "token")
		})
	}
}

func TestCreatePost_Errors(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.tokenFor(t, "ada@example.com")

	tests := []struct {
		name   string
		token  string
		body   map[string]any
		status int
	}{
		{"no token", "", map[string]any{"title": "T", "content": "<p>x</p>"}, http.StatusUnauthorized},
		{"missing title", token, map[string]any{"content": "<p>x</p>"}, http.StatusBadRequest},
		{"only script", token, map[string]any{"title": "T", "content": "<script>alert(1)</script>"}, http.StatusBadRequest},
		{"unsafe cover", token, map[string]any{"title": "T", "content": "<p>x</p>", "image_url": "javascript:x()"}, http.StatusBadRequest},
		{"bad document", token, map[string]any{"title": "T", "format": "document", "document": map[string]any{"type": "bogus"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.doJSON(t, http.MethodPost, "/api/posts", tt.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePost_DeletedAuthor(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.tokenFor(t, "ada@example.com")
	require.NoError(t, env.db.Delete(&models.User{}, user.ID).Error)

	resp, _ := env.doJSON(t, http.MethodPost, "/api/posts", token, map[string]any{"title": "T", "content": "<p>x</p>"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreatePost_Document(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.tokenFor(t, "ada@example.com")

	doc := map[string]any{
		"type": "doc",
		"content": []any{
			map[string]any{"type": "heading", "attrs": map[string]any{"level": 2}, "content": []any{
				map[string]any{"type": "text", "text": "Intro"},
			}},
			map[string]any{"type": "paragraph", "content": []any{
				map[string]any{"type": "text", "text": "<b>literal</b>"},
			}},
		},
	}
	resp, body := env.doJSON(t, http.MethodPost, "/api/posts", token, map[string]any{
		"title": "Doc", "format": "document", "document": doc,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))
	assert.Equal(t, "<h2>Intro</h2><p>&lt;b&gt;literal&lt;/b&gt;</p>", post.Content)
}

func TestGetPost_NotFound(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.doJSON(t, http.MethodGet, "/api/posts/00000000-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), models.CodeNotFound)
}

func TestGetPosts_Pagination(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.tokenFor(t, "ada@example.com")
	for _, title := range []string{"one", "two", "three"} {
		resp, _ := env.doJSON(t, http.MethodPost, "/api/posts", token, map[string]any{"title": title, "content": "<p>x</p>"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := env.doJSON(t, http.MethodGet, "/api/posts?limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page []models.Post
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Len(t, page, 2)

	resp, body = env.doJSON(t, http.MethodGet, "/api/posts?limit=2&offset=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Len(t, page, 1)
}
