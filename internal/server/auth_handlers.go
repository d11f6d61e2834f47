package server

import (
	"time"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	FirstName      string `form:"firstName" json:"firstName"`
	LastName       string `form:"lastName" json:"lastName"`
	Telephone      string `form:"telephone" json:"telephone"`
	Email          string `form:"email" json:"email"`
	Password       string `form:"password" json:"password"`
	Bio            string `form:"bio" json:"bio"`
	ProfilePicture string `form:"profilePicture" json:"profilePicture"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register an author account. profilePicture may be an image file part or a data URI.
// @Tags auth
// @Accept multipart/form-data,application/x-www-form-urlencoded
// @Produce json
// @Param firstName formData string true "First name"
// @Param lastName formData string true "Last name"
// @Param telephone formData string true "Telephone"
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param bio formData string false "Bio"
// @Param profilePicture formData file false "Profile picture"
// @Success 201 {object} object{message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Telephone: req.Telephone,
	}
	if req.Bio != "" {
		in.Bio = &req.Bio
	}

	fh, fileErr := c.FormFile("profilePicture")
	hasFile := fileErr == nil
	if !hasFile && req.ProfilePicture != "" {
		in.ProfilePicture = &req.ProfilePicture
	}

	// nothing is stored for a signup that would be rejected
	if err := s.authService.CheckRegistration(c.UserContext(), in); err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if hasFile {
		uploaded, err := s.storeFormFile(c, fh, true)
		if err != nil {
			return nil
		}
		in.ProfilePicture = &uploaded.URL
	}

	user, err := s.authService.Register(c.UserContext(), in)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Account created",
		"user":    user,
	})
}

// Signin handles POST /api/auth/signin
// @Summary User signin
// @Description Verify credentials and return a session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/signin [post]
func (s *Server) Signin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Verify(c.UserContext(), req.Email, req.Password)
	if err != nil {
		// unknown email and wrong password look the same to the client
		if models.HasCode(err, models.CodeNotFound) {
			err = models.NewInvalidCredentialError()
		}
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Signout handles POST /api/auth/signout
// @Summary User signout
// @Description Revoke the presented session token
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /auth/signout [post]
func (s *Server) Signout(c *fiber.Ctx) error {
	jti, _ := c.Locals("jti").(string)
	expiry, _ := c.Locals("tokenExpiry").(time.Time)

	if err := s.cache.RevokeToken(c.UserContext(), jti, time.Until(expiry)); err != nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
