package shared

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"stay/shared/cache"
	"stay/shared/constant"
)

const cacheKeySeparator = ":"

// BuildCacheKey joins a cache prefix with its identifying parts.
func BuildCacheKey(parts ...string) string {
	return strings.Join(parts, cacheKeySeparator)
}

// InvalidateCaches clears every cache entry under the given prefix.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefix string) {
	pattern := prefix + cacheKeySeparator + constant.Asterix

	if err := redisCache.Clear(ctx, pattern); err != nil {
		log.Error().Err(err).Str("pattern", pattern).Msg("failed to invalidate caches")
	}
}
