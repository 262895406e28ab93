package redis

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/utils"
)

const seenPrefix = "prospector:seen:"

// SeenRepoImpl remembers the match keys of stored prospects with an expiry.
type SeenRepoImpl struct {
	client *redis.Client
}

// NewSeenRepo creates a new instance of SeenRepoImpl.
func NewSeenRepo(client *redis.Client) *SeenRepoImpl {
	return &SeenRepoImpl{client: client}
}

var _ repository.SeenRepository = (*SeenRepoImpl)(nil)

// seenKeys hashes every usable key into its own Redis key. Emails and sites
// compare case-insensitively.
func seenKeys(keys entity.MatchKeys) []string {
	keys = keys.Sanitized()
	var out []string
	if keys.Phone != "" {
		out = append(out, seenPrefix+"phone:"+utils.HashKey(keys.Phone))
	}
	if keys.Email != "" {
		out = append(out, seenPrefix+"email:"+utils.HashKey(strings.ToLower(keys.Email)))
	}
	if keys.Site != "" {
		out = append(out, seenPrefix+"site:"+utils.HashKey(strings.ToLower(keys.Site)))
	}
	return out
}

// MarkSeen sets one expiring key per match key in a single round trip.
func (r *SeenRepoImpl) MarkSeen(ctx context.Context, keys entity.MatchKeys, ttl time.Duration) error {
	redisKeys := seenKeys(keys)
	if len(redisKeys) == 0 {
		return nil
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range redisKeys {
			pipe.SetEx(ctx, key, "1", ttl)
		}
		return nil
	})
	return err
}

// IsSeen reports whether any of the keys was marked.
func (r *SeenRepoImpl) IsSeen(ctx context.Context, keys entity.MatchKeys) (bool, error) {
	redisKeys := seenKeys(keys)
	if len(redisKeys) == 0 {
		return false, nil
	}
	n, err := r.client.Exists(ctx, redisKeys...).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
