package router

import (
	"github.com/pozytywnie/facebook-auth/app/controllers"
	"github.com/pozytywnie/facebook-auth/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Social OAuth
	app.Get("/login", func(c *fiber.Ctx) error {
		return c.Redirect("/auth/facebook", fiber.StatusSeeOther)
	})
	app.Get("/auth/:provider", controllers.HandleAuthLogin)
	app.Get("/auth/:provider/callback", controllers.HandleAuthCallback)

	// JS login: the browser SDK already holds a provider token
	app.Post("/auth/token", controllers.HandleTokenLogin)

	app.Post("/logout", middleware.RequireAuth, controllers.HandleLogout)
	app.Get("/me", middleware.RequireAPISessionAuth, controllers.HandleMe)
	app.Get("/me/scopes/:scope", middleware.RequireAPISessionAuth, controllers.HandleMeScope)
}
