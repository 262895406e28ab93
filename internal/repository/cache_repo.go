package repository

import (
	"context"
	"time"

	"github.com/user/prospector/internal/entity"
)

// VerdictCache keeps deep-inspection verdicts per site.
type VerdictCache interface {
	// Get returns ErrCacheMiss when nothing is cached for url.
	Get(ctx context.Context, url string) (entity.SiteVerdict, error)
	Put(ctx context.Context, url string, verdict entity.SiteVerdict, ttl time.Duration) error
}

// SeenRepository remembers match keys of prospects already stored, in front
// of the record store.
type SeenRepository interface {
	MarkSeen(ctx context.Context, keys entity.MatchKeys, ttl time.Duration) error
	IsSeen(ctx context.Context, keys entity.MatchKeys) (bool, error)
}
