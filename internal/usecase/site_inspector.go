package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/metrics"
)

// documentSelector is the whole rendered document.
const documentSelector = "html"

const bodyFontScript = `window.getComputedStyle(document.body).fontFamily`

// layoutProbe is decoded from layoutProbeScript.
type layoutProbe struct {
	ScrollWidth int `json:"scrollWidth"`
	InnerWidth  int `json:"innerWidth"`
	Flexible    int `json:"flexible"`
}

func layoutProbeScript(sampleSize int) string {
	return fmt.Sprintf(`(() => {
  const els = document.querySelectorAll('*');
  const limit = Math.min(%d, els.length);
  let flexible = 0;
  for (let i = 0; i < limit; i++) {
    const s = window.getComputedStyle(els[i]);
    const w = (els[i].style && els[i].style.width) || s.width || '';
    if (s.display === 'flex' || s.display === 'grid' || s.maxWidth === '100%%' || w.includes('%%')) {
      flexible++;
    }
  }
  return {scrollWidth: document.documentElement.scrollWidth, innerWidth: window.innerWidth, flexible: flexible};
})()`, sampleSize)
}

// InspectorConfig tunes the deep inspection heuristics.
type InspectorConfig struct {
	NavigationTimeout   time.Duration
	MobileWidth         int
	MobileHeight        int
	SampleSize          int
	MinFlexibleElements int
	ModernYear          int
}

func DefaultInspectorConfig() InspectorConfig {
	return InspectorConfig{
		NavigationTimeout:   15 * time.Second,
		MobileWidth:         375,
		MobileHeight:        667,
		SampleSize:          50,
		MinFlexibleElements: 6,
		ModernYear:          2018,
	}
}

// Inspection is the outcome of rendering a candidate site.
type Inspection struct {
	Responsive bool
	Outdated   bool
	LastSignal string
	// Degraded is set when a check fell back to its default because the
	// page could not be loaded or read, not because of what it measured.
	Degraded bool
}

// SiteInspector renders structurally valid sites and judges their mobile
// support and apparent age.
type SiteInspector struct {
	cfg     InspectorConfig
	pacer   *Pacer
	settle  Delay
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSiteInspector(cfg InspectorConfig, pacer *Pacer, settle Delay, logger *zap.Logger, m *metrics.Metrics) *SiteInspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pacer == nil {
		pacer = NewPacer()
	}
	return &SiteInspector{cfg: cfg, pacer: pacer, settle: settle, logger: logger, metrics: m}
}

// Inspect runs the responsiveness and age checks, each on its own page.
// Failures inside a check only degrade that check; an error is returned only
// when a page could not be opened or a check panicked.
func (i *SiteInspector) Inspect(ctx context.Context, browser repository.Browser, siteURL string) (Inspection, error) {
	start := time.Now()
	defer func() {
		i.metrics.ObserveInspection(registrableDomain(siteURL), time.Since(start).Seconds())
	}()

	var (
		result   Inspection
		degraded bool
		age      ageOutcome
	)
	runResponsive := guardCheck("responsiveness", func(ctx context.Context) error {
		page, err := browser.NewPage(ctx)
		if err != nil {
			return fmt.Errorf("open responsiveness page: %w", err)
		}
		defer page.Close()
		result.Responsive, degraded = i.checkResponsive(ctx, page, siteURL)
		return nil
	})
	runAge := guardCheck("age", func(ctx context.Context) error {
		page, err := browser.NewPage(ctx)
		if err != nil {
			return fmt.Errorf("open age page: %w", err)
		}
		defer page.Close()
		age = i.checkAge(ctx, page, siteURL)
		return nil
	})

	if browser.MultiPage() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return runResponsive(gctx) })
		g.Go(func() error { return runAge(gctx) })
		if err := g.Wait(); err != nil {
			return Inspection{}, fmt.Errorf("%w: %v", repository.ErrValidationFailed, err)
		}
	} else {
		if err := runResponsive(ctx); err != nil {
			return Inspection{}, fmt.Errorf("%w: %v", repository.ErrValidationFailed, err)
		}
		if err := runAge(ctx); err != nil {
			return Inspection{}, fmt.Errorf("%w: %v", repository.ErrValidationFailed, err)
		}
	}

	result.Outdated = age.Outdated
	result.LastSignal = age.LastSignal
	result.Degraded = degraded || age.Degraded
	i.logger.Debug("site inspected",
		zap.String("url", siteURL),
		zap.Bool("responsive", result.Responsive),
		zap.Bool("outdated", result.Outdated),
		zap.String("last_signal", result.LastSignal),
		zap.Bool("degraded", result.Degraded),
	)
	return result, nil
}

// guardCheck turns a panic inside a check into an error, including when the
// check runs on its own goroutine.
func guardCheck(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s check panicked: %v", name, r)
			}
		}()
		return fn(ctx)
	}
}

// checkResponsive treats every failure as "not responsive": a site that does
// not load is a poor site. degraded reports that the answer came from a
// failure rather than a measurement.
func (i *SiteInspector) checkResponsive(ctx context.Context, page repository.Page, siteURL string) (responsive, degraded bool) {
	if err := page.Navigate(ctx, siteURL, i.cfg.NavigationTimeout); err != nil {
		i.logger.Debug("responsiveness navigation failed", zap.String("url", siteURL), zap.Error(err))
		return false, true
	}
	html, err := page.OuterHTML(ctx, documentSelector, 0)
	if err != nil {
		i.logger.Debug("could not read document", zap.String("url", siteURL), zap.Error(err))
		return false, true
	}
	content, ok, err := viewportMetaContent(html)
	if err != nil {
		return false, true
	}
	if !ok || !strings.Contains(content, "width=device-width") {
		return false, false
	}

	if err := page.SetViewport(ctx, i.cfg.MobileWidth, i.cfg.MobileHeight); err != nil {
		i.logger.Debug("could not resize viewport", zap.String("url", siteURL), zap.Error(err))
		return false, true
	}
	if err := i.pacer.Pause(ctx, i.settle); err != nil {
		return false, true
	}

	var probe layoutProbe
	if err := page.Evaluate(ctx, layoutProbeScript(i.cfg.SampleSize), &probe); err != nil {
		i.logger.Debug("layout probe failed", zap.String("url", siteURL), zap.Error(err))
		return false, true
	}
	if probe.ScrollWidth > probe.InnerWidth {
		return false, false
	}
	return probe.Flexible >= i.cfg.MinFlexibleElements, false
}

type ageOutcome struct {
	Outdated   bool
	LastSignal string
	Degraded   bool
}

// checkAge treats failures as "not outdated": without evidence the site is
// left to the responsiveness verdict.
func (i *SiteInspector) checkAge(ctx context.Context, page repository.Page, siteURL string) ageOutcome {
	if err := page.Navigate(ctx, siteURL, i.cfg.NavigationTimeout); err != nil {
		i.logger.Debug("age navigation failed", zap.String("url", siteURL), zap.Error(err))
		return ageOutcome{Degraded: true}
	}
	html, err := page.OuterHTML(ctx, documentSelector, 0)
	if err != nil {
		i.logger.Debug("could not read document", zap.String("url", siteURL), zap.Error(err))
		return ageOutcome{Degraded: true}
	}
	signals, err := extractAgeSignals(html)
	if err != nil {
		i.logger.Debug("could not parse document", zap.String("url", siteURL), zap.Error(err))
		return ageOutcome{Degraded: true}
	}

	out := ageOutcome{LastSignal: signals.LastSignal}
	var font string
	if err := page.Evaluate(ctx, bodyFontScript, &font); err != nil {
		i.logger.Debug("font probe failed", zap.String("url", siteURL), zap.Error(err))
		out.Degraded = true
	}

	switch {
	case signals.Year > 0 && signals.Year < i.cfg.ModernYear:
		out.Outdated = true
	case signals.HasFlash, hasLegacyFont(font):
		out.Outdated = true
	case signals.HasTableLayout && !signals.HasModernFramework:
		out.Outdated = true
	}
	return out
}

// registrableDomain labels metrics by eTLD+1 to keep cardinality bounded.
func registrableDomain(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
