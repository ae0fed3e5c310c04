package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DmytryS/user-actions-service/internal/api/dto"
	"github.com/DmytryS/user-actions-service/internal/auth"
	"github.com/DmytryS/user-actions-service/internal/service"
	apperrors "github.com/DmytryS/user-actions-service/pkg/util"
)

// parseBody decodes and validates a JSON payload.
func parseBody(c *fiber.Ctx, req dto.Validatable) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload")
	}
	return dto.ValidationError(req.Validate())
}

// callerFrom maps the authenticated principal, or nil for anonymous requests.
func callerFrom(c *fiber.Ctx) *service.Caller {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil
	}
	return &service.Caller{ID: principal.User.ID, Role: principal.User.Role}
}

func page(c *fiber.Ctx) (int, int) {
	return c.QueryInt("skip", 0), c.QueryInt("limit", 0)
}
