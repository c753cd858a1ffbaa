package server

import (
	"strings"

	"struggles/internal/middleware"
	"struggles/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
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

// sessionToken reads the credential from the Authorization header, falling
// back to the session cookie.
func (s *Server) sessionToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.Cookies(s.config.SessionCookieName)
}

func (s *Server) setCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(middleware.LocalUser, user)
	c.Locals(middleware.LocalUserID, user.ID)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))
}

// currentUser returns the user resolved by AuthRequired or OptionalUser.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(middleware.LocalUser).(*models.User)
	return user
}

func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.LocalUserID).(string)
	return id
}
