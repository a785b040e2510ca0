package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-insurance-service/internal/api/http/handlers"
	"github.com/spec-kit/travel-insurance-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Quotes         *handlers.QuoteHandler
	Issuance       *handlers.IssuanceHandler
	Policies       *handlers.PolicyHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	api.Post("/quotes/products", cfg.Quotes.QuoteProducts)
	api.Post("/quotes/addons", cfg.Quotes.QuoteAddons)
	api.Post("/quotes", cfg.Quotes.SaveQuote)
	api.Get("/quotes/:id", cfg.Quotes.GetQuote)

	api.Post("/policies/issue", cfg.Issuance.Issue)
	api.Get("/policies", cfg.Policies.List)
	api.Get("/policies/:id", cfg.Policies.Get)
	api.Post("/policies/:id/cancel", cfg.Policies.Cancel)
	api.Post("/policies/:id/rectify-validity", cfg.Policies.Rectify)
}
