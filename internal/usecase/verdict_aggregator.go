package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/metrics"
)

// Validator combines the structural classification with deep inspection.
type Validator struct {
	classifier *DomainClassifier
	inspector  *SiteInspector
	launch     repository.BrowserLauncher
	cache      repository.VerdictCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithVerdictCache stores deep verdicts for ttl.
func WithVerdictCache(cache repository.VerdictCache, ttl time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.cache = cache
		v.cacheTTL = ttl
	}
}

// WithBrowserLauncher enables ValidateURL.
func WithBrowserLauncher(launch repository.BrowserLauncher) ValidatorOption {
	return func(v *Validator) { v.launch = launch }
}

func NewValidator(classifier *DomainClassifier, inspector *SiteInspector, logger *zap.Logger, m *metrics.Metrics, opts ...ValidatorOption) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Validator{
		classifier: classifier,
		inspector:  inspector,
		logger:     logger,
		metrics:    m,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Classify is the structural check alone.
func (v *Validator) Classify(rawURL string) entity.SiteVerdict {
	return v.classifier.Classify(rawURL)
}

// Validate returns the final verdict for rawURL. The browser is only used
// when the structural verdict is Valid.
func (v *Validator) Validate(ctx context.Context, browser repository.Browser, rawURL string) entity.SiteVerdict {
	structural := v.classifier.Classify(rawURL)
	if structural.Category != entity.CategoryValid {
		v.metrics.IncVerdict(structural.Category.String())
		return structural
	}

	target := NormalizeSiteURL(rawURL)
	if cached, ok := v.cached(ctx, target); ok {
		v.metrics.IncVerdict(cached.Category.String())
		return cached
	}

	verdict, degraded, err := v.inspect(ctx, browser, target)
	if err != nil {
		v.logger.Warn("deep inspection failed",
			zap.String("url", target),
			zap.Error(err),
		)
		verdict = validationErrorVerdict()
		v.metrics.IncVerdict(verdict.Category.String())
		return verdict
	}

	// Verdicts from pages that failed to load are not cached.
	if !degraded {
		v.store(ctx, target, verdict)
	}
	v.metrics.IncVerdict(verdict.Category.String())
	return verdict
}

// ValidateURL validates a single site outside a harvest, starting a browser
// session only when deep inspection is needed.
func (v *Validator) ValidateURL(ctx context.Context, rawURL string) (entity.SiteVerdict, error) {
	structural := v.classifier.Classify(rawURL)
	if structural.Category != entity.CategoryValid {
		v.metrics.IncVerdict(structural.Category.String())
		return structural, nil
	}
	if cached, ok := v.cached(ctx, NormalizeSiteURL(rawURL)); ok {
		v.metrics.IncVerdict(cached.Category.String())
		return cached, nil
	}
	if v.launch == nil {
		return entity.SiteVerdict{}, fmt.Errorf("%w: no browser configured", repository.ErrBrowserInit)
	}

	browser, err := v.launch(ctx)
	if err != nil {
		return entity.SiteVerdict{}, err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			v.logger.Warn("failed to close browser", zap.Error(err))
		}
	}()
	return v.Validate(ctx, browser, rawURL), nil
}

// inspect converts a panic in the render layer into an error. degraded is
// true when a check fell back to its default after a page failure.
func (v *Validator) inspect(ctx context.Context, browser repository.Browser, target string) (verdict entity.SiteVerdict, degraded bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", repository.ErrValidationFailed, r)
		}
	}()
	if browser == nil {
		return entity.SiteVerdict{}, false, fmt.Errorf("%w: no browser session", repository.ErrValidationFailed)
	}

	result, err := v.inspector.Inspect(ctx, browser, target)
	if err != nil {
		return entity.SiteVerdict{}, false, err
	}
	responsive := result.Responsive
	switch {
	case !result.Responsive:
		return entity.SiteVerdict{
			Category:   entity.CategoryNonResponsive,
			Reason:     entity.ReasonNonResponsive,
			Responsive: &responsive,
		}, result.Degraded, nil
	case result.Outdated:
		return entity.SiteVerdict{
			Category:       entity.CategoryOutdated,
			Reason:         entity.ReasonOutdated,
			Responsive:     &responsive,
			LastSignalDate: result.LastSignal,
		}, result.Degraded, nil
	default:
		return entity.SiteVerdict{
			Category:       entity.CategoryValid,
			Reason:         entity.ReasonValidModern,
			IsAdequate:     true,
			Responsive:     &responsive,
			LastSignalDate: result.LastSignal,
		}, result.Degraded, nil
	}
}

func (v *Validator) cached(ctx context.Context, target string) (entity.SiteVerdict, bool) {
	if v.cache == nil {
		return entity.SiteVerdict{}, false
	}
	verdict, err := v.cache.Get(ctx, target)
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			v.logger.Warn("verdict cache lookup failed", zap.String("url", target), zap.Error(err))
		}
		return entity.SiteVerdict{}, false
	}
	return verdict, true
}

func (v *Validator) store(ctx context.Context, target string, verdict entity.SiteVerdict) {
	if v.cache == nil || v.cacheTTL <= 0 {
		return
	}
	if err := v.cache.Put(ctx, target, verdict, v.cacheTTL); err != nil {
		v.logger.Warn("verdict cache write failed", zap.String("url", target), zap.Error(err))
	}
}

func validationErrorVerdict() entity.SiteVerdict {
	return entity.SiteVerdict{
		Category:    entity.CategoryNoSite,
		Reason:      entity.ReasonValidationError,
		NeedsReview: true,
	}
}
