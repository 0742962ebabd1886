package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pozytywnie/facebook-auth/app/repository"
	"github.com/pozytywnie/facebook-auth/internal/pkg/jobqueue"
	"github.com/pozytywnie/facebook-auth/internal/pkg/metrics/counter"
)

var adminTokenRepo repository.TokenRepository

// InitializeAdminController wires the token repository into the admin handlers
func InitializeAdminController(tokens repository.TokenRepository) {
	adminTokenRepo = tokens
}

// HandleAdminTokens lists stored tokens with optional filters:
// deleted=true|false, q=<token or user substring>, offset, limit.
func HandleAdminTokens(c *fiber.Ctx) error {
	var deleted *bool
	switch c.Query("deleted") {
	case "true":
		v := true
		deleted = &v
	case "false":
		v := false
		deleted = &v
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	tokens, err := adminTokenRepo.List(deleted, c.Query("q"), offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "listing failed",
		})
	}

	return c.JSON(fiber.Map{
		"tokens": tokens,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleAdminGraphCounters reports per-path Graph API call and error counts
// together with the current job queue depths.
func HandleAdminGraphCounters(c *fiber.Ctx) error {
	calls, errs, err := counter.Snapshot()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "counter snapshot failed",
		})
	}

	pending, delayed, processing := jobqueue.GetManager().Stats(c.Context())

	return c.JSON(fiber.Map{
		"graph_calls":  calls,
		"graph_errors": errs,
		"queue": fiber.Map{
			"pending":    pending,
			"delayed":    delayed,
			"processing": processing,
		},
	})
}
