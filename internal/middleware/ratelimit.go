package middleware

import (
	"fmt"
	"net/http"

	"github.com/benvon/toptag/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// DefaultRate is used when no rate is configured
const DefaultRate = "5-S"

const rateLimitPrefix = "toptag:ratelimit"

// RateLimit returns middleware that limits requests per client IP with ulule/limiter.
// Counters live in redis when a client is given, otherwise in process memory.
func RateLimit(formatted string, redisClient *redis.Client) (func(http.Handler) http.Handler, error) {
	if formatted == "" {
		formatted = DefaultRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
	}

	instance := limiter.New(store, rate)
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(request.ClientIP))
	return mw.Handler, nil
}
