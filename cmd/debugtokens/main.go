package main

import (
	"fmt"
	stdlog "log"

	"github.com/pozytywnie/facebook-auth/app/repository"
	"github.com/pozytywnie/facebook-auth/internal/pkg/cache"
	"github.com/pozytywnie/facebook-auth/internal/pkg/database"
	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
	"github.com/pozytywnie/facebook-auth/internal/pkg/graph"
	"github.com/pozytywnie/facebook-auth/internal/pkg/jobqueue"
	"github.com/pozytywnie/facebook-auth/internal/pkg/tokens"
)

// debugtokens schedules a revalidation pass for every user that has at least
// one stored token. The web process's workers pick the jobs up.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	graphClient := graph.NewClient(graph.LoggingObserver{})
	validator := tokens.NewValidator(graphClient, repos.User)

	queue := jobqueue.GetManager().GetQueue()
	scheduler := tokens.NewScheduler(repos.Token, validator, queue, tokens.CacheMarker{})

	ids, err := repos.Token.DistinctProviderUserIDs()
	if err != nil {
		stdlog.Fatalf("listing token owners: %v", err)
	}

	for _, id := range ids {
		fmt.Printf("Debugging user %q\n", id)
		if err := scheduler.Schedule(id); err != nil {
			stdlog.Fatalf("scheduling user %q: %v", id, err)
		}
	}
}
