package router

import (
	"github.com/pozytywnie/facebook-auth/app/controllers"
	"github.com/pozytywnie/facebook-auth/app/repository"
	"github.com/pozytywnie/facebook-auth/internal/pkg/auth"
	"github.com/pozytywnie/facebook-auth/internal/pkg/middleware"
	"github.com/pozytywnie/facebook-auth/internal/pkg/oauth"
	"github.com/pozytywnie/facebook-auth/internal/pkg/session"
	"github.com/pozytywnie/facebook-auth/internal/pkg/urlsign"

	"github.com/gofiber/fiber/v2"
)

// Deps collects everything the route handlers need; main builds it once.
type Deps struct {
	Backend    *auth.Backend
	Users      repository.UserRepository
	Tokens     repository.TokenRepository
	NextSigner *urlsign.Signer
}

type HttpRouter struct {
	deps Deps
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	controllers.InitializeAuthController(h.deps.Backend, h.deps.Users, h.deps.NextSigner)
	controllers.InitializeAdminController(h.deps.Tokens)

	h.registerPublicRoutes(app)
	h.registerAdminRoutes(app)
}

func NewHttpRouter(deps Deps) *HttpRouter {
	return &HttpRouter{deps: deps}
}
