package server

import (
	"io"
	"mime/multipart"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadFile handles POST /api/uploads
// @Summary Upload a media file
// @Description Store an image, video, audio or PDF file and return its public URL
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param upload formData file true "File"
// @Success 201 {object} service.Upload
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /uploads [post]
func (s *Server) UploadFile(c *fiber.Ctx) error {
	fh, err := c.FormFile("upload")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("No file uploaded"))
	}

	uploaded, err := s.storeFormFile(c, fh, false)
	if err != nil {
		return nil
	}
	return c.Status(fiber.StatusCreated).JSON(uploaded)
}

// storeFormFile passes a multipart file to the media service and resolves
// the returned URLs against the public media origin. On failure it writes
// the error response and returns errResponseWritten.
func (s *Server) storeFormFile(c *fiber.Ctx, fh *multipart.FileHeader, imagesOnly bool) (*service.Upload, error) {
	if fh.Size > s.mediaService.MaxUploadBytes() {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("File is too large"))
		return nil, errResponseWritten
	}

	src, err := fh.Open()
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
		return nil, errResponseWritten
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(io.LimitReader(src, s.mediaService.MaxUploadBytes()+1))
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unable to read uploaded file"))
		return nil, errResponseWritten
	}

	uploaded, err := s.mediaService.Upload(c.UserContext(), service.UploadInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
		ImagesOnly:  imagesOnly,
	})
	if err != nil {
		_ = models.RespondWithError(c, mapServiceError(err), err)
		return nil, errResponseWritten
	}

	base := s.publicBase(c)
	uploaded.URL = absoluteURL(base, uploaded.URL)
	uploaded.PreviewURL = absoluteURL(base, uploaded.PreviewURL)
	return uploaded, nil
}
