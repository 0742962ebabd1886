package main

import (
	"fmt"
	stdlog "log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pozytywnie/facebook-auth/app/repository"
	"github.com/pozytywnie/facebook-auth/internal/pkg/auth"
	"github.com/pozytywnie/facebook-auth/internal/pkg/cache"
	"github.com/pozytywnie/facebook-auth/internal/pkg/database"
	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
	"github.com/pozytywnie/facebook-auth/internal/pkg/graph"
	"github.com/pozytywnie/facebook-auth/internal/pkg/jobqueue"
	"github.com/pozytywnie/facebook-auth/internal/pkg/metrics/counter"
	"github.com/pozytywnie/facebook-auth/internal/pkg/router"
	"github.com/pozytywnie/facebook-auth/internal/pkg/tokens"
	"github.com/pozytywnie/facebook-auth/internal/pkg/urlsign"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	stdlog.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repos := repository.NewFactory(database.GetDB()).GetRepositories()

	graphClient := graph.NewClient(graph.LoggingObserver{}, counter.GraphCallObserver{})
	validator := tokens.NewValidator(graphClient, repos.User)

	manager := jobqueue.GetManager()
	scheduler := tokens.NewScheduler(repos.Token, validator, manager.GetQueue(), tokens.CacheMarker{})
	manager.GetQueue().RegisterHandler(jobqueue.JobTypeDebugUserTokens, scheduler.HandleJob)

	// Every stored token kicks off a debounced revalidation of its owner.
	repos.Token.AfterInsert(scheduler.Trigger)

	manager.Start()

	backend := auth.NewBackend(graphClient, repos.User, repos.Token)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "facebook-auth",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Backend:    backend,
		Users:      repos.User,
		Tokens:     repos.Token,
		NextSigner: urlsign.NewSignerFromEnv(),
	})

	return app
}
