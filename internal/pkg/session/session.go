package session

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/pozytywnie/facebook-auth/internal/pkg/cache"
	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
)

var sessionStore *session.Store

func NewSessionStore() *session.Store {
	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		// Prefer password from the underlying client if present
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Create Redis storage for sessions using database 1 (cache uses DB 0)
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1, // Separate database for sessions
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour * 72,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// GetSessionValue retrieves a value by key from the user's individual session
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	value := sess.Get(key)
	if value == nil {
		return ""
	}

	if strValue, ok := value.(string); ok {
		return strValue
	}

	return ""
}
