package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DmytryS/user-actions-service/internal/api/http/handlers"
	"github.com/DmytryS/user-actions-service/internal/auth"
	"github.com/DmytryS/user-actions-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Actions        *handlers.ActionsHandler
	News           *handlers.NewsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1")
	authed := cfg.AuthMiddleware.Handle
	admin := auth.RequireRole(domain.RoleAdmin)

	users := api.Group("/users")
	users.Put("", cfg.AuthMiddleware.Optional, cfg.Users.Register)
	users.Post("/login", cfg.Users.Login)
	users.Post("/reset-password", cfg.Users.ResetPassword)
	users.Get("/profile", authed, cfg.Users.Profile)
	users.Get("", authed, admin, cfg.Users.List)
	users.Get("/:id", authed, admin, cfg.Users.Get)
	users.Post("/:id", authed, admin, cfg.Users.Update)
	users.Delete("/:id", authed, admin, cfg.Users.Delete)

	actions := api.Group("/actions")
	actions.Get("/:id", cfg.Actions.Get)
	actions.Post("/:id", cfg.Actions.Perform)

	news := api.Group("/news", authed)
	news.Get("", cfg.News.List)
	news.Get("/:id", cfg.News.Get)
	news.Put("", cfg.News.Create)
	news.Post("/:id", cfg.News.Update)
	news.Delete("/:id", cfg.News.Delete)
}
