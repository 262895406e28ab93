package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/metrics"
	"github.com/user/prospector/pkg/utils"
)

var (
	ErrHarvestRecentlySubmitted = errors.New("the same harvest was submitted recently and force is false")
)

const (
	defaultSubmissionWindow = 10 * time.Minute
)

// JobManager defines the interface for submitting and checking harvests.
type JobManager interface {
	Submit(ctx context.Context, req entity.HarvestRequest, force bool) (*entity.JobStatus, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*entity.JobStatus, error)
}

type jobManagerUseCase struct {
	queueRepo       repository.JobQueueRepository
	statusRepo      repository.JobStatusRepository
	submissionsRepo repository.SubmissionRepository
	maxAreas        int
	maxPerArea      int
	window          time.Duration
	logger          *zap.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewJobManager creates a new JobManager use case. submissionsRepo may be nil
// to disable resubmission detection.
func NewJobManager(
	queueRepo repository.JobQueueRepository,
	statusRepo repository.JobStatusRepository,
	submissionsRepo repository.SubmissionRepository,
	cfg HarvesterConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) JobManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jobManagerUseCase{
		queueRepo:       queueRepo,
		statusRepo:      statusRepo,
		submissionsRepo: submissionsRepo,
		maxAreas:        cfg.MaxAreas,
		maxPerArea:      cfg.MaxPerArea,
		window:          defaultSubmissionWindow,
		logger:          logger,
		metrics:         m,
		now:             time.Now,
	}
}

func (uc *jobManagerUseCase) Submit(ctx context.Context, req entity.HarvestRequest, force bool) (*entity.JobStatus, error) {
	req, err := ValidateHarvestRequest(req, uc.maxAreas, uc.maxPerArea)
	if err != nil {
		return nil, err
	}
	fingerprint := harvestFingerprint(req)

	if uc.submissionsRepo != nil {
		if force {
			if err := uc.submissionsRepo.Forget(ctx, fingerprint); err != nil {
				uc.logger.Warn("failed to forget previous submission", zap.Error(err))
			}
		} else {
			previous, err := uc.submissionsRepo.RecentJob(ctx, fingerprint)
			switch {
			case err == nil:
				status, findErr := uc.GetStatus(ctx, previous)
				if findErr != nil {
					status = &entity.JobStatus{JobID: previous, State: entity.JobPending}
				}
				return status, ErrHarvestRecentlySubmitted
			case !errors.Is(err, repository.ErrNotFound):
				return nil, fmt.Errorf("failed to check previous submissions: %w", err)
			}
		}
	}

	now := uc.now().UTC()
	job := &entity.HarvestJob{ID: uuid.New(), Request: req, SubmittedAt: now}
	status := &entity.JobStatus{JobID: job.ID, State: entity.JobPending, UpdatedAt: now}

	if err := uc.statusRepo.Save(ctx, status); err != nil {
		return nil, fmt.Errorf("failed to record job %s: %w", job.ID, err)
	}
	if err := uc.queueRepo.Push(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue job %s: %w", job.ID, err)
	}

	if uc.submissionsRepo != nil {
		if err := uc.submissionsRepo.MarkSubmitted(ctx, fingerprint, job.ID, uc.window); err != nil {
			// The job is queued; at worst an identical request is queued again.
			uc.logger.Error("failed to mark harvest as submitted", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
	if size, err := uc.queueRepo.Size(ctx); err == nil {
		uc.metrics.SetQueueSize(size)
	}

	uc.logger.Info("harvest job queued",
		zap.String("job_id", job.ID.String()),
		zap.String("role", req.RoleDescription),
		zap.Strings("areas", req.Areas),
	)
	return status, nil
}

func (uc *jobManagerUseCase) GetStatus(ctx context.Context, id uuid.UUID) (*entity.JobStatus, error) {
	status, err := uc.statusRepo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &entity.JobStatus{JobID: id, State: entity.JobNotFound}, nil
		}
		return nil, err
	}
	return status, nil
}

// harvestFingerprint identifies a request regardless of area order and case.
func harvestFingerprint(req entity.HarvestRequest) string {
	areas := make([]string, len(req.Areas))
	for i, a := range req.Areas {
		areas[i] = strings.ToLower(a)
	}
	sort.Strings(areas)
	parts := append([]string{strings.ToLower(req.RoleDescription), strconv.Itoa(req.PerAreaCap)}, areas...)
	return utils.HashKey(parts...)
}
