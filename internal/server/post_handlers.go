package server

import (
	"encoding/json"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Document json.RawMessage `json:"document,omitempty"`
	Format   string          `json:"format,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
	VideoURL string          `json:"video_url,omitempty"`
}

// CreatePost handles POST /api/posts
// @Summary Publish a post
// @Description Content is HTML by default; format "document" takes an editor document and "markdown" takes Markdown. Content is sanitized before it is stored.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), identity(c), service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Document: req.Document,
		Format:   req.Format,
		ImageURL: req.ImageURL,
		VideoURL: req.VideoURL,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Newest first. Without limit every post is returned.
// @Tags posts
// @Produce json
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 0)

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Read a post
// @Description Returns the post with its content re-rendered through the sanitizer and an excerpt
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} service.PostView
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	view, err := s.postService.GetPostView(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(view)
}

// GetFeed handles GET /api/feed
// @Summary Home feed
// @Description The newest post, the four after it, then the next five, each with an excerpt
// @Tags posts
// @Produce json
// @Success 200 {object} service.Feed
// @Router /feed [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	feed, err := s.postService.Feed(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(feed)
}
