package server

import (
	"errors"
	"strings"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset. A defaultLimit of 0 means "no
// limit" when the caller does not ask for one.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// mapServiceError maps AppError codes to HTTP status codes.
func mapServiceError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeUnauthorized, models.CodeInvalidCredential:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeDuplicateEmail:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// identity returns the caller resolved by AuthRequired.
func identity(c *fiber.Ctx) *models.Identity {
	userID, ok := c.Locals("userID").(uint)
	if !ok || userID == 0 {
		return nil
	}
	email, _ := c.Locals("email").(string)
	return &models.Identity{UserID: userID, Email: email}
}

// publicBase is the origin stored media URLs are resolved against. The
// request origin is only trusted outside production.
func (s *Server) publicBase(c *fiber.Ctx) string {
	if s.config.MediaPublicBase != "" {
		return s.config.MediaPublicBase
	}
	if s.config.IsProduction() {
		return ""
	}
	return c.BaseURL()
}

// absoluteURL resolves a store URL that starts with "/" against base. An
// empty base leaves it relative.
func absoluteURL(base, u string) string {
	if base == "" || u == "" || !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") {
		return u
	}
	return base + u
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
