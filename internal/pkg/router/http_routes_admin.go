package router

import (
	"github.com/pozytywnie/facebook-auth/app/controllers"
	"github.com/pozytywnie/facebook-auth/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/tokens", controllers.HandleAdminTokens)
	adminGroup.Get("/graph-counters", controllers.HandleAdminGraphCounters)
}
