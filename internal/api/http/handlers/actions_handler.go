package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DmytryS/user-actions-service/internal/api/dto"
	"github.com/DmytryS/user-actions-service/internal/service"
)

// ActionsHandler exposes single-use action tokens. Possession of the id is the credential.
type ActionsHandler struct {
	actions *service.ActionService
}

// NewActionsHandler constructs handler.
func NewActionsHandler(actions *service.ActionService) *ActionsHandler {
	return &ActionsHandler{actions: actions}
}

// Get handles GET /actions/:id.
func (h *ActionsHandler) Get(c *fiber.Ctx) error {
	view, err := h.actions.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewActionResponse(view))
}

// Perform handles POST /actions/:id.
func (h *ActionsHandler) Perform(c *fiber.Ctx) error {
	var req dto.PerformActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.actions.UpdateByID(c.UserContext(), c.Params("id"), req.Password); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
