package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/metrics"
)

// HarvestWorker drains the harvest job queue, one job at a time.
type HarvestWorker interface {
	// ProcessNextJob runs the next queued job. It reports false when the
	// queue was empty.
	ProcessNextJob(ctx context.Context) (bool, error)
	Start()
	Stop()
}

type harvestWorker struct {
	queueRepo  repository.JobQueueRepository
	statusRepo repository.JobStatusRepository
	runner     HarvestRunner
	events     repository.EventPublisher
	interval   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHarvestWorker creates the single background consumer of harvest jobs.
func NewHarvestWorker(
	queueRepo repository.JobQueueRepository,
	statusRepo repository.JobStatusRepository,
	runner HarvestRunner,
	events repository.EventPublisher,
	interval time.Duration,
	logger *zap.Logger,
	m *metrics.Metrics,
) HarvestWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &harvestWorker{
		queueRepo:  queueRepo,
		statusRepo: statusRepo,
		runner:     runner,
		events:     events,
		interval:   interval,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}
}

func (w *harvestWorker) Start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *harvestWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

func (w *harvestWorker) loop() {
	defer w.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		// Drain everything that is waiting before sleeping again.
		for {
			processed, err := w.ProcessNextJob(ctx)
			if err != nil {
				w.logger.Error("harvest job processing failed", zap.Error(err))
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
		}
	}
}

func (w *harvestWorker) ProcessNextJob(ctx context.Context) (bool, error) {
	job, err := w.queueRepo.Pop(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrQueueEmpty) {
			return false, nil
		}
		return false, fmt.Errorf("failed to pop harvest job: %w", err)
	}
	w.refreshQueueSize(ctx)

	w.logger.Info("processing harvest job",
		zap.String("job_id", job.ID.String()),
		zap.String("role", job.Request.RoleDescription),
		zap.Int("areas", len(job.Request.Areas)),
	)

	started := w.now().UTC()
	status := &entity.JobStatus{
		JobID:     job.ID,
		State:     entity.JobRunning,
		UpdatedAt: started,
		StartedAt: &started,
	}
	if err := w.statusRepo.Save(ctx, status); err != nil {
		w.logger.Warn("failed to record running state", zap.String("job_id", job.ID.String()), zap.Error(err))
	}

	report, runErr := w.runner.Run(ctx, job.Request, func(p entity.HarvestProgress) {
		w.logger.Info("harvest progress",
			zap.String("job_id", job.ID.String()),
			zap.String("area", p.Area),
			zap.Int("area_index", p.AreaIndex+1),
			zap.Int("total_areas", p.TotalAreas),
			zap.Int("kept", p.Kept),
			zap.Bool("failed", p.Failed),
		)
	})

	finished := w.now().UTC()
	status.UpdatedAt = finished
	status.FinishedAt = &finished
	status.Report = report
	if runErr != nil {
		status.State = entity.JobFailed
		status.Failure = runErr.Error()
		w.logger.Error("harvest job failed", zap.String("job_id", job.ID.String()), zap.Error(runErr))
	} else {
		status.State = entity.JobCompleted
		w.logger.Info("harvest job completed",
			zap.String("job_id", job.ID.String()),
			zap.Int("saved", report.TotalSaved),
			zap.Int("duplicates", report.TotalDuplicates),
		)
	}

	// The job is done whatever happens to the bookkeeping below, so use a
	// context that survives a shutdown.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := w.statusRepo.Save(saveCtx, status); err != nil {
		return true, fmt.Errorf("failed to save status of job %s: %w", job.ID, err)
	}
	if runErr == nil && w.events != nil {
		if err := w.events.HarvestCompleted(saveCtx, job.ID.String(), report); err != nil {
			w.logger.Warn("failed to publish harvest completion", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
	return true, nil
}

func (w *harvestWorker) refreshQueueSize(ctx context.Context) {
	size, err := w.queueRepo.Size(ctx)
	if err != nil {
		w.logger.Debug("could not read queue size", zap.Error(err))
		return
	}
	w.metrics.SetQueueSize(size)
}
