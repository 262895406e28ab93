package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

const jobStatusPrefix = "prospector:harvest:job:"

// JobStatusRepoImpl keeps job statuses as JSON strings that expire after ttl.
type JobStatusRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJobStatusRepo creates a new instance of JobStatusRepoImpl. A zero ttl
// keeps statuses forever.
func NewJobStatusRepo(client *redis.Client, ttl time.Duration) *JobStatusRepoImpl {
	return &JobStatusRepoImpl{client: client, ttl: ttl}
}

var _ repository.JobStatusRepository = (*JobStatusRepoImpl)(nil)

func (r *JobStatusRepoImpl) Save(ctx context.Context, status *entity.JobStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode job status: %w", err)
	}
	return r.client.Set(ctx, jobStatusPrefix+status.JobID.String(), payload, r.ttl).Err()
}

func (r *JobStatusRepoImpl) Find(ctx context.Context, id uuid.UUID) (*entity.JobStatus, error) {
	payload, err := r.client.Get(ctx, jobStatusPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var status entity.JobStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}
	return &status, nil
}
