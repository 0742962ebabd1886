package counter

import (
	"context"
	"strconv"

	"github.com/pozytywnie/facebook-auth/internal/pkg/cache"
	"github.com/pozytywnie/facebook-auth/internal/pkg/graph"
)

const (
	graphCallsKey  = "graph:counters:calls"
	graphErrorsKey = "graph:counters:errors"
)

// AddGraphCall increments the per-path call counter in Redis
func AddGraphCall(path string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, graphCallsKey, path, 1).Err()
}

// AddGraphError increments the per-path error counter in Redis
func AddGraphError(path string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, graphErrorsKey, path, 1).Err()
}

// Snapshot returns the per-path call and error counts.
func Snapshot() (calls map[string]int64, errors map[string]int64, err error) {
	calls, err = readHash(graphCallsKey)
	if err != nil {
		return nil, nil, err
	}
	errors, err = readHash(graphErrorsKey)
	if err != nil {
		return nil, nil, err
	}
	return calls, errors, nil
}

func readHash(key string) (map[string]int64, error) {
	ctx := context.Background()
	raw, err := cache.GetClient().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for field, val := range raw {
		if n, perr := strconv.ParseInt(val, 10, 64); perr == nil {
			out[field] = n
		}
	}
	return out, nil
}

// GraphCallObserver counts every Graph call and error. Counter write errors
// are dropped; metrics never fail a provider call.
type GraphCallObserver struct{}

func (GraphCallObserver) HandleGraphCall(call graph.CallInfo) {
	_ = AddGraphCall(call.Path)
	if call.Err != nil {
		_ = AddGraphError(call.Path)
	}
}
