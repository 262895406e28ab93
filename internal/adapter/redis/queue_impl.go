package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

const harvestQueueKey = "prospector:harvest:queue"

// QueueRepoImpl is a FIFO of harvest jobs on a Redis list.
type QueueRepoImpl struct {
	client *redis.Client
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(client *redis.Client) *QueueRepoImpl {
	return &QueueRepoImpl{client: client}
}

var _ repository.JobQueueRepository = (*QueueRepoImpl)(nil)

// Push adds a job to the left side of the list.
func (r *QueueRepoImpl) Push(ctx context.Context, job *entity.HarvestJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode harvest job: %w", err)
	}
	return r.client.LPush(ctx, harvestQueueKey, payload).Err()
}

// Pop removes the oldest job from the right side of the list.
func (r *QueueRepoImpl) Pop(ctx context.Context) (*entity.HarvestJob, error) {
	payload, err := r.client.RPop(ctx, harvestQueueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	var job entity.HarvestJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("failed to decode harvest job: %w", err)
	}
	return &job, nil
}

// Size returns the current number of jobs in the queue.
func (r *QueueRepoImpl) Size(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, harvestQueueKey).Result()
}
