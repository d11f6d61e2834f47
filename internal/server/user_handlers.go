package server

import (
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Email          string  `json:"email"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Telephone      *string `json:"telephone"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
}

// GetProfile handles GET /api/profile?email=
// @Summary Read a profile
// @Description Telephone is only included for the profile owner
// @Tags profile
// @Produce json
// @Param email query string true "Email"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))

	profile, err := s.userService.GetProfile(c.UserContext(), email)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if caller := s.optionalIdentity(c); caller == nil || caller.Email != profile.Email {
		profile.Telephone = ""
	}
	return c.JSON(profile)
}

// UpdateProfile handles PATCH /api/profile
// @Summary Update the caller's profile
// @Description Omitted fields are kept. An empty bio or profile_picture clears it.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest true "Changes"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /profile [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	caller := identity(c)
	if caller == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = caller.Email
	}
	if email != caller.Email {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("You can only edit your own profile"))
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), email, service.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Telephone:      req.Telephone,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(user.Profile())
}

// GetMyPosts handles GET /api/profile/posts
// @Summary List the caller's posts
// @Description Newest first, with the caller's total post count. Without limit every post is returned.
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} service.AuthorPosts
// @Failure 401 {object} models.ErrorResponse
// @Router /profile/posts [get]
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 0)

	out, err := s.postService.ListByAuthor(c.UserContext(), identity(c), service.ListPostsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	return c.JSON(out)
}
