package chromedp_browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/prospector/internal/repository"
)

// stealthScript runs before any page script and hides the automation flags.
const stealthScript = `
delete window.webdriver;
if (window.chrome && window.chrome.runtime) { delete window.chrome.runtime.onConnect; }
Object.defineProperty(navigator, 'webdriver', { get: () => false });
`

// Config describes the Chrome session.
type Config struct {
	Headless       bool
	UserAgents     []string
	AcceptLanguage string
	Proxy          string
	WindowWidth    int
	WindowHeight   int
	// NavigationsPerSecond caps page loads across every page of a session.
	NavigationsPerSecond float64
	NavigationBurst      int
}

func DefaultConfig() Config {
	return Config{
		Headless:             true,
		UserAgents:           defaultUserAgents,
		AcceptLanguage:       "fr-FR,fr;q=0.9,en;q=0.8",
		WindowWidth:          1920,
		WindowHeight:         1080,
		NavigationsPerSecond: 1,
		NavigationBurst:      2,
	}
}

// ChromedpBrowser is one headless Chrome process. Every page is a tab of it.
type ChromedpBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	cfg           Config
	userAgent     string
	limiter       *rate.Limiter
	logger        *zap.Logger
	closeOnce     sync.Once
}

// NewLauncher returns a launcher starting a fresh Chrome per call.
func NewLauncher(cfg Config, logger *zap.Logger) repository.BrowserLauncher {
	return func(ctx context.Context) (repository.Browser, error) {
		b, err := Launch(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Launch starts Chrome. Any failure is reported as ErrBrowserInit.
func Launch(ctx context.Context, cfg Config, logger *zap.Logger) (*ChromedpBrowser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrBrowserInit, err)
	}

	ua := newIdentity(cfg.UserAgents).userAgent()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(ua),
	)
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}

	// The session outlives the launch call; Close releases it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))

	// Run with no actions starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", repository.ErrBrowserInit, err)
	}

	limit := rate.Inf
	if cfg.NavigationsPerSecond > 0 {
		limit = rate.Limit(cfg.NavigationsPerSecond)
	}
	burst := cfg.NavigationBurst
	if burst < 1 {
		burst = 1
	}

	logger.Info("browser started", zap.Bool("headless", cfg.Headless), zap.Bool("proxy", cfg.Proxy != ""))
	return &ChromedpBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		cfg:           cfg,
		userAgent:     ua,
		limiter:       rate.NewLimiter(limit, burst),
		logger:        logger,
	}, nil
}

// NewPage opens a tab with the session's identity applied.
func (b *ChromedpBrowser) NewPage(ctx context.Context) (repository.Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": b.cfg.AcceptLanguage,
		}),
		emulation.SetUserAgentOverride(b.userAgent).WithAcceptLanguage(b.cfg.AcceptLanguage),
		chromedp.EmulateViewport(int64(b.cfg.WindowWidth), int64(b.cfg.WindowHeight)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &chromedpPage{ctx: tabCtx, cancel: cancel, limiter: b.limiter}, nil
}

// MultiPage is true: tabs of one Chrome can be driven concurrently.
func (b *ChromedpBrowser) MultiPage() bool { return true }

func (b *ChromedpBrowser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = chromedp.Cancel(b.browserCtx)
		b.browserCancel()
		b.allocCancel()
		b.logger.Info("browser closed")
	})
	return err
}
