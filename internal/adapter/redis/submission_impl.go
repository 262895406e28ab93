package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/prospector/internal/repository"
)

const submissionPrefix = "prospector:harvest:submitted:"

// SubmissionRepoImpl remembers recent harvest fingerprints, used to reject
// repeated submissions unless forced.
type SubmissionRepoImpl struct {
	client *redis.Client
}

// NewSubmissionRepo creates a new instance of SubmissionRepoImpl.
func NewSubmissionRepo(client *redis.Client) *SubmissionRepoImpl {
	return &SubmissionRepoImpl{client: client}
}

var _ repository.SubmissionRepository = (*SubmissionRepoImpl)(nil)

func (r *SubmissionRepoImpl) MarkSubmitted(ctx context.Context, fingerprint string, jobID uuid.UUID, ttl time.Duration) error {
	return r.client.SetEx(ctx, submissionPrefix+fingerprint, jobID.String(), ttl).Err()
}

func (r *SubmissionRepoImpl) RecentJob(ctx context.Context, fingerprint string) (uuid.UUID, error) {
	val, err := r.client.Get(ctx, submissionPrefix+fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, repository.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(val)
}

// Forget drops the fingerprint, used for forced submissions.
func (r *SubmissionRepoImpl) Forget(ctx context.Context, fingerprint string) error {
	return r.client.Del(ctx, submissionPrefix+fingerprint).Err()
}
