package router

import (
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, deps Deps) {
	// Install HttpRouter first to initialize the session store, oauth
	// providers, and the global UserContext middleware. The admin routes
	// depend on that middleware.
	setup(app, NewHttpRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
