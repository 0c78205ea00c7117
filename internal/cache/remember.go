package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Remember returns the value cached under key, or calls load and caches its result for ttl.
// Errors from load are returned and nothing is cached.
func Remember[T any](ctx context.Context, store Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if store != nil {
		if raw, ok := store.Get(ctx, key); ok {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			log.Warn().Str("key", key).Msg("Dropping undecodable cache entry")
			store.Delete(ctx, key)
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	if store != nil {
		if raw, err := json.Marshal(value); err == nil {
			store.Set(ctx, key, raw, ttl)
		}
	}
	return value, nil
}
