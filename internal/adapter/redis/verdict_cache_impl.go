package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/utils"
)

const verdictPrefix = "prospector:verdict:"

// VerdictCacheImpl caches deep-inspection verdicts by normalized site URL.
type VerdictCacheImpl struct {
	client *redis.Client
}

// NewVerdictCache creates a new instance of VerdictCacheImpl.
func NewVerdictCache(client *redis.Client) *VerdictCacheImpl {
	return &VerdictCacheImpl{client: client}
}

var _ repository.VerdictCache = (*VerdictCacheImpl)(nil)

func (c *VerdictCacheImpl) Get(ctx context.Context, url string) (entity.SiteVerdict, error) {
	payload, err := c.client.Get(ctx, verdictPrefix+utils.HashKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.SiteVerdict{}, repository.ErrCacheMiss
	}
	if err != nil {
		return entity.SiteVerdict{}, err
	}
	var verdict entity.SiteVerdict
	if err := json.Unmarshal(payload, &verdict); err != nil {
		return entity.SiteVerdict{}, fmt.Errorf("failed to decode cached verdict: %w", err)
	}
	return verdict, nil
}

func (c *VerdictCacheImpl) Put(ctx context.Context, url string, verdict entity.SiteVerdict, ttl time.Duration) error {
	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to encode verdict: %w", err)
	}
	return c.client.Set(ctx, verdictPrefix+utils.HashKey(url), payload, ttl).Err()
}
