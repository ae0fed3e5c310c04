package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/DmytryS/user-actions-service/internal/api/dto"
	"github.com/DmytryS/user-actions-service/internal/domain"
	"github.com/DmytryS/user-actions-service/internal/service"
)

// UsersHandler exposes registration, login and user administration.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Register handles PUT /users.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	id, err := h.users.Register(c.UserContext(), callerFrom(c), service.RegisterInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.RegisterResponse{ID: id})
}

// Login handles POST /users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{Token: res.Token, Expires: res.ExpiresAt})
}

// ResetPassword handles POST /users/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.users.ResetPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Profile handles GET /users/profile.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	user, err := h.users.Profile(c.UserContext(), callerFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	var role *domain.Role
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		r := domain.Role(strings.ToUpper(raw))
		role = &r
	}
	skip, limit := page(c)

	users, err := h.users.GetUsers(c.UserContext(), skip, limit, role)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserListResponse(users))
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Update handles POST /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.UserUpdateInput{Name: req.Name}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}
	if req.Status != nil {
		status := domain.UserStatus(*req.Status)
		input.Status = &status
	}

	user, err := h.users.UpdateByID(c.UserContext(), callerFrom(c), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.DeleteByID(c.UserContext(), callerFrom(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
