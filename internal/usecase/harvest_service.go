package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

// persistTimeout bounds saving the survivors of a run.
const persistTimeout = 30 * time.Second

// HarvestRunner runs a harvest and persists its survivors.
type HarvestRunner interface {
	Run(ctx context.Context, req entity.HarvestRequest, progress ProgressFunc) (*entity.HarvestReport, error)
}

type harvestService struct {
	harvester *Harvester
	store     repository.ProspectRepository
	seen      repository.SeenRepository
	seenTTL   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewHarvestService wires persistence behind a Harvester. seen may be nil.
func NewHarvestService(
	harvester *Harvester,
	store repository.ProspectRepository,
	seen repository.SeenRepository,
	seenTTL time.Duration,
	logger *zap.Logger,
) HarvestRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &harvestService{
		harvester: harvester,
		store:     store,
		seen:      seen,
		seenTTL:   seenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *harvestService) Run(ctx context.Context, req entity.HarvestRequest, progress ProgressFunc) (*entity.HarvestReport, error) {
	result, err := s.harvester.Harvest(ctx, req, progress)
	if result == nil {
		return nil, err
	}

	report := &entity.HarvestReport{
		RoleDescription: req.RoleDescription,
		Areas:           req.Areas,
		TotalFound:      result.TotalFound,
		TotalKept:       result.TotalKept,
		TotalDuplicates: result.TotalDuplicate,
		AreasProcessed:  result.AreasProcessed,
		AreasFailed:     result.AreasFailed,
	}
	s.persist(ctx, result.Survivors, report)
	return report, err
}

// persist stores survivors one by one. A uniqueness conflict at write time is
// a duplicate that slipped past the existence check, not a failure. Survivors
// of a cancelled run are still saved.
func (s *harvestService) persist(ctx context.Context, survivors []entity.CandidateRecord, report *entity.HarvestReport) {
	if len(survivors) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	for _, candidate := range survivors {
		prospect := entity.NewProspect(candidate, s.now().UTC())
		err := s.store.Create(ctx, prospect)
		switch {
		case err == nil:
			report.TotalSaved++
			s.markSeen(ctx, prospect.MatchKeys())
		case errors.Is(err, repository.ErrDuplicate):
			report.TotalDuplicates++
			var dupErr *repository.DuplicateConstraintError
			field := ""
			if errors.As(err, &dupErr) {
				field = dupErr.Field
			}
			s.logger.Info("duplicate detected at write time",
				zap.String("name", prospect.Name),
				zap.String("field", field),
			)
		default:
			report.TotalSaveFailed++
			s.logger.Error("failed to save prospect",
				zap.String("name", prospect.Name),
				zap.Error(err),
			)
		}
	}
}

func (s *harvestService) markSeen(ctx context.Context, keys entity.MatchKeys) {
	if s.seen == nil || keys.Empty() {
		return
	}
	if err := s.seen.MarkSeen(ctx, keys, s.seenTTL); err != nil {
		s.logger.Warn("failed to mark prospect as seen", zap.Error(err))
	}
}
