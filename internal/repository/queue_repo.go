package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/user/prospector/internal/entity"
)

// JobQueueRepository is a FIFO queue of harvest jobs.
type JobQueueRepository interface {
	Push(ctx context.Context, job *entity.HarvestJob) error
	// Pop returns ErrQueueEmpty when no job is waiting.
	Pop(ctx context.Context) (*entity.HarvestJob, error)
	Size(ctx context.Context) (int64, error)
}

// JobStatusRepository records the lifecycle of harvest jobs.
type JobStatusRepository interface {
	Save(ctx context.Context, status *entity.JobStatus) error
	// Find returns ErrNotFound for unknown jobs.
	Find(ctx context.Context, id uuid.UUID) (*entity.JobStatus, error)
}

// SubmissionRepository remembers recently submitted harvests so the same
// request is not queued twice.
type SubmissionRepository interface {
	MarkSubmitted(ctx context.Context, fingerprint string, jobID uuid.UUID, ttl time.Duration) error
	// RecentJob returns ErrNotFound when fingerprint was not submitted recently.
	RecentJob(ctx context.Context, fingerprint string) (uuid.UUID, error)
	Forget(ctx context.Context, fingerprint string) error
}
