package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/metrics"
)

const scrollResultsScript = `(() => {
  const el = document.querySelector('[role="main"]');
  if (el) { el.scrollTop = el.scrollHeight; }
  return true;
})()`

// Candidate outcomes, also used as metric labels.
const (
	outcomeKept      = "kept"
	outcomeAdequate  = "adequate"
	outcomeDuplicate = "duplicate"
	outcomeSkipped   = "skipped"
)

// HarvesterConfig bounds a harvest run.
type HarvesterConfig struct {
	MaxAreas        int
	MaxPerArea      int
	MaxScrolls      int
	SearchBaseURL   string
	PageLoadTimeout time.Duration
	ResultsTimeout  time.Duration
}

func DefaultHarvesterConfig() HarvesterConfig {
	return HarvesterConfig{
		MaxAreas:        30,
		MaxPerArea:      100,
		MaxScrolls:      5,
		SearchBaseURL:   "https://www.google.com/maps/search/",
		PageLoadTimeout: 30 * time.Second,
		ResultsTimeout:  10 * time.Second,
	}
}

// ProgressFunc is called after each area, failed or not.
type ProgressFunc func(entity.HarvestProgress)

// Harvester walks areas on the map search surface and keeps the businesses
// whose web presence is not adequate.
type Harvester struct {
	cfg       HarvesterConfig
	pacing    PacingConfig
	pacer     *Pacer
	launch    repository.BrowserLauncher
	validator *Validator
	store     repository.ProspectRepository
	seen      repository.SeenRepository
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// HarvesterDeps are the collaborators of a Harvester. Seen, Logger and
// Metrics are optional.
type HarvesterDeps struct {
	Launch    repository.BrowserLauncher
	Validator *Validator
	Store     repository.ProspectRepository
	Seen      repository.SeenRepository
	Pacer     *Pacer
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

func NewHarvester(cfg HarvesterConfig, pacing PacingConfig, deps HarvesterDeps) *Harvester {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Pacer == nil {
		deps.Pacer = NewPacer()
	}
	return &Harvester{
		cfg:       cfg,
		pacing:    pacing,
		pacer:     deps.Pacer,
		launch:    deps.Launch,
		validator: deps.Validator,
		store:     deps.Store,
		seen:      deps.Seen,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
	}
}

// ValidateHarvestRequest trims req and checks it against the session
// ceilings. A zero PerAreaCap means maxPerArea.
func ValidateHarvestRequest(req entity.HarvestRequest, maxAreas, maxPerArea int) (entity.HarvestRequest, error) {
	out := entity.HarvestRequest{
		RoleDescription: strings.TrimSpace(req.RoleDescription),
		PerAreaCap:      req.PerAreaCap,
	}
	if out.RoleDescription == "" {
		return out, fmt.Errorf("%w: role description is required", repository.ErrInvalidHarvestRequest)
	}
	if len(req.Areas) == 0 {
		return out, fmt.Errorf("%w: at least one area is required", repository.ErrInvalidHarvestRequest)
	}
	if len(req.Areas) > maxAreas {
		return out, fmt.Errorf("%w: %d areas exceeds the limit of %d", repository.ErrInvalidHarvestRequest, len(req.Areas), maxAreas)
	}
	out.Areas = make([]string, 0, len(req.Areas))
	for i, area := range req.Areas {
		area = strings.TrimSpace(area)
		if area == "" {
			return out, fmt.Errorf("%w: area %d is blank", repository.ErrInvalidHarvestRequest, i+1)
		}
		out.Areas = append(out.Areas, area)
	}
	if out.PerAreaCap == 0 {
		out.PerAreaCap = maxPerArea
	}
	if out.PerAreaCap < 1 || out.PerAreaCap > maxPerArea {
		return out, fmt.Errorf("%w: per-area cap must be between 1 and %d", repository.ErrInvalidHarvestRequest, maxPerArea)
	}
	return out, nil
}

// Harvest runs one session. Per-item and per-area failures are absorbed;
// only an invalid request, a browser that cannot start, or a cancelled ctx
// end it early.
func (h *Harvester) Harvest(ctx context.Context, req entity.HarvestRequest, progress ProgressFunc) (*entity.HarvestResult, error) {
	req, err := ValidateHarvestRequest(req, h.cfg.MaxAreas, h.cfg.MaxPerArea)
	if err != nil {
		return nil, err
	}

	browser, err := h.launch(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrBrowserInit) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrBrowserInit, err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			h.logger.Warn("failed to close browser", zap.Error(err))
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open search page: %v", repository.ErrBrowserInit, err)
	}
	defer page.Close()

	run := &harvestRun{
		Harvester: h,
		browser:   browser,
		page:      page,
		session: &entity.HarvestSession{
			RoleDescription: req.RoleDescription,
			Areas:           req.Areas,
			PerAreaCap:      req.PerAreaCap,
		},
		accepted: make(map[string]struct{}),
		result:   &entity.HarvestResult{Survivors: []entity.CandidateRecord{}},
	}

	h.logger.Info("harvest started",
		zap.String("role", req.RoleDescription),
		zap.Int("areas", len(req.Areas)),
		zap.Int("per_area_cap", req.PerAreaCap),
	)

	for i, area := range req.Areas {
		stats, err := run.harvestArea(ctx, area)
		if err != nil {
			if ctx.Err() != nil {
				return run.finish(), ctx.Err()
			}
			run.session.AreasFailed++
			run.result.AreasFailed = append(run.result.AreasFailed, area)
			h.metrics.IncArea("failed")
			h.logger.Warn("area failed", zap.String("area", area), zap.Error(err))
		} else {
			run.session.AreasCompleted++
			run.result.AreasProcessed = append(run.result.AreasProcessed, area)
			h.metrics.IncArea("completed")
			h.logger.Info("area completed",
				zap.String("area", area),
				zap.Int("found", stats.found),
				zap.Int("kept", stats.kept),
				zap.Int("duplicates", stats.duplicates),
			)
		}

		if progress != nil {
			progress(entity.HarvestProgress{
				Area:       area,
				AreaIndex:  i,
				TotalAreas: len(req.Areas),
				Found:      stats.found,
				Kept:       stats.kept,
				Duplicates: stats.duplicates,
				Failed:     err != nil,
			})
		}

		if i < len(req.Areas)-1 {
			if err := h.pacer.Pause(ctx, h.pacing.BetweenAreas); err != nil {
				return run.finish(), err
			}
		}
	}

	result := run.finish()
	h.logger.Info("harvest finished",
		zap.String("role", req.RoleDescription),
		zap.Int("found", result.TotalFound),
		zap.Int("kept", result.TotalKept),
		zap.Int("duplicates", result.TotalDuplicate),
		zap.Int("adequate", result.TotalAdequate),
		zap.Int("areas_failed", len(result.AreasFailed)),
	)
	return result, nil
}

// harvestRun is the state of one Harvest call.
type harvestRun struct {
	*Harvester
	browser  repository.Browser
	page     repository.Page
	session  *entity.HarvestSession
	accepted map[string]struct{}
	result   *entity.HarvestResult
}

type areaStats struct {
	found      int
	kept       int
	duplicates int
}

func (r *harvestRun) finish() *entity.HarvestResult {
	r.result.TotalFound = r.session.TotalExtracted
	r.result.TotalKept = r.session.TotalKept
	r.result.TotalDuplicate = r.session.TotalDuplicate
	r.result.TotalAdequate = r.session.TotalAdequate
	return r.result
}

func (r *harvestRun) harvestArea(ctx context.Context, area string) (areaStats, error) {
	var stats areaStats
	searchURL := r.cfg.SearchBaseURL + url.PathEscape(r.session.RoleDescription+" "+area)

	if err := r.page.Navigate(ctx, searchURL, r.cfg.PageLoadTimeout); err != nil {
		return stats, fmt.Errorf("search %q: %w", area, err)
	}
	if err := r.pacer.Pause(ctx, r.pacing.PageLoad); err != nil {
		return stats, err
	}
	if err := r.page.WaitVisible(ctx, resultsContainerSelector, r.cfg.ResultsTimeout); err != nil {
		return stats, fmt.Errorf("results for %q: %w", area, err)
	}
	if err := r.pacer.Pause(ctx, r.pacing.AfterSearch); err != nil {
		return stats, err
	}
	if err := r.scrollResults(ctx); err != nil {
		return stats, err
	}

	count, err := r.page.Count(ctx, resultItemSelector)
	if err != nil {
		return stats, fmt.Errorf("count results for %q: %w", area, err)
	}
	limit := min(count, r.session.PerAreaCap)

	for idx := 0; idx < limit; idx++ {
		candidate, outcome, err := r.processItem(ctx, area, idx)
		switch {
		case err != nil:
			r.logger.Warn("item skipped", zap.String("area", area), zap.Int("index", idx), zap.Error(err))
			r.session.TotalSkipped++
		case outcome == outcomeKept:
			r.result.Survivors = append(r.result.Survivors, *candidate)
			r.session.TotalKept++
			stats.kept++
			r.logger.Info("prospect kept",
				zap.String("name", candidate.Name),
				zap.String("reason", candidate.SelectionReason),
			)
		case outcome == outcomeDuplicate:
			r.session.TotalDuplicate++
			stats.duplicates++
			r.logger.Debug("duplicate ignored", zap.String("name", candidate.Name))
		case outcome == outcomeAdequate:
			r.session.TotalAdequate++
			r.logger.Debug("adequate site ignored",
				zap.String("name", candidate.Name),
				zap.String("site", candidate.DeclaredSite),
			)
		}
		if outcome != outcomeSkipped {
			r.session.TotalExtracted++
			stats.found++
		}
		r.metrics.IncCandidate(outcome)

		if err := r.pacer.Pause(ctx, r.pacing.BetweenItems); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// scrollResults loads more items until the cap or the scroll limit is hit.
// Scroll failures leave whatever is already loaded.
func (r *harvestRun) scrollResults(ctx context.Context) error {
	for i := 0; i < r.cfg.MaxScrolls; i++ {
		if err := r.page.Evaluate(ctx, scrollResultsScript, nil); err != nil {
			r.logger.Debug("scroll failed", zap.Error(err))
			return nil
		}
		if err := r.pacer.Pause(ctx, r.pacing.BetweenScroll); err != nil {
			return err
		}
		n, err := r.page.Count(ctx, resultItemSelector)
		if err != nil {
			r.logger.Debug("could not count results", zap.Error(err))
			return nil
		}
		if n >= r.session.PerAreaCap {
			return nil
		}
	}
	return nil
}

// processItem extracts, classifies and dedupes the idx-th result. A non-nil
// error always comes with outcomeSkipped.
func (r *harvestRun) processItem(ctx context.Context, area string, idx int) (*entity.CandidateRecord, string, error) {
	itemHTML, err := r.page.OuterHTML(ctx, resultItemSelector, idx)
	if err != nil {
		return nil, outcomeSkipped, fmt.Errorf("read item: %w", err)
	}
	name, err := extractItemName(itemHTML)
	if err != nil {
		return nil, outcomeSkipped, err
	}
	if err := r.page.Click(ctx, resultItemSelector, idx); err != nil {
		return nil, outcomeSkipped, fmt.Errorf("open details of %q: %w", name, err)
	}
	if err := r.pacer.Pause(ctx, r.pacing.DetailSettle); err != nil {
		return nil, outcomeSkipped, err
	}

	var details listingDetails
	if panel, err := r.page.OuterHTML(ctx, detailPanelSelector, 0); err != nil {
		r.logger.Debug("detail panel unreadable", zap.String("name", name), zap.Error(err))
	} else if details, err = extractListingDetails(panel); err != nil {
		r.logger.Debug("detail panel unparsable", zap.String("name", name), zap.Error(err))
	}

	verdict := r.validator.Validate(ctx, r.browser, details.Site)
	candidate := &entity.CandidateRecord{
		Name:            name,
		Phone:           details.Phone,
		DeclaredSite:    details.Site,
		Address:         details.Address,
		Area:            area,
		RoleDescription: r.session.RoleDescription,
		SelectionReason: verdict.Reason,
		Rating:          details.Rating,
		ReviewCount:     details.ReviewCount,
	}
	if verdict.IsAdequate {
		return candidate, outcomeAdequate, nil
	}

	keys := candidate.MatchKeys().Sanitized()
	if r.isDuplicate(ctx, keys) {
		return candidate, outcomeDuplicate, nil
	}
	r.accept(keys)
	return candidate, outcomeKept, nil
}

// isDuplicate checks the session, then the seen cache, then the store. Lookup
// failures never block a candidate.
func (r *harvestRun) isDuplicate(ctx context.Context, keys entity.MatchKeys) bool {
	if keys.Empty() {
		return false
	}
	for _, k := range sessionKeys(keys) {
		if _, ok := r.accepted[k]; ok {
			return true
		}
	}
	if r.seen != nil {
		seen, err := r.seen.IsSeen(ctx, keys)
		if err != nil {
			r.logger.Warn("seen cache lookup failed", zap.Error(err))
		} else if seen {
			return true
		}
	}
	if r.store == nil {
		return false
	}
	exists, err := r.store.Exists(ctx, keys)
	if err != nil {
		r.logger.Warn("duplicate check failed", zap.Error(err))
		return false
	}
	return exists
}

func (r *harvestRun) accept(keys entity.MatchKeys) {
	for _, k := range sessionKeys(keys) {
		r.accepted[k] = struct{}{}
	}
}

func sessionKeys(keys entity.MatchKeys) []string {
	var out []string
	if keys.Phone != "" {
		out = append(out, "phone:"+keys.Phone)
	}
	if keys.Email != "" {
		out = append(out, "email:"+strings.ToLower(keys.Email))
	}
	if keys.Site != "" {
		out = append(out, "site:"+strings.ToLower(keys.Site))
	}
	return out
}
