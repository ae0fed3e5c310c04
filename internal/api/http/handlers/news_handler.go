package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DmytryS/user-actions-service/internal/api/dto"
	"github.com/DmytryS/user-actions-service/internal/service"
)

// NewsHandler exposes news CRUD.
type NewsHandler struct {
	news *service.NewsService
}

// NewNewsHandler constructs handler.
func NewNewsHandler(news *service.NewsService) *NewsHandler {
	return &NewsHandler{news: news}
}

// List handles GET /news.
func (h *NewsHandler) List(c *fiber.Ctx) error {
	skip, limit := page(c)
	items, err := h.news.GetNews(c.UserContext(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNewsListResponse(items))
}

// Get handles GET /news/:id.
func (h *NewsHandler) Get(c *fiber.Ctx) error {
	item, err := h.news.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNewsResponse(item))
}

// Create handles PUT /news.
func (h *NewsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateNewsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.news.Create(c.UserContext(), callerFrom(c), service.NewsInput{
		Name:     &req.Name,
		Text:     &req.Text,
		Language: req.Language,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNewsResponse(item))
}

// Update handles POST /news/:id.
func (h *NewsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateNewsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.news.UpdateByID(c.UserContext(), callerFrom(c), c.Params("id"), service.NewsInput{
		Name:     req.Name,
		Text:     req.Text,
		Language: req.Language,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewNewsResponse(item))
}

// Delete handles DELETE /news/:id.
func (h *NewsHandler) Delete(c *fiber.Ctx) error {
	if err := h.news.DeleteByID(c.UserContext(), callerFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
