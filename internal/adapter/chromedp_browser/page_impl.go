package chromedp_browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/user/prospector/internal/repository"
)

// chromedpPage is a browser tab.
type chromedpPage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	limiter *rate.Limiter
}

// scoped derives a run context from the tab that also ends with ctx or after
// timeout. Cancelling it does not close the tab.
func (p *chromedpPage) scoped(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromedpPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}
	runCtx, cancel := p.scoped(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}
	return nil
}

func (p *chromedpPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel := p.scoped(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrElementNotFound, selector, err)
	}
	return nil
}

func (p *chromedpPage) Count(ctx context.Context, selector string) (int, error) {
	var n int
	if err := p.Evaluate(ctx, countScript(selector), &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *chromedpPage) OuterHTML(ctx context.Context, selector string, index int) (string, error) {
	var html *string
	if err := p.Evaluate(ctx, outerHTMLScript(selector, index), &html); err != nil {
		return "", err
	}
	if html == nil {
		return "", fmt.Errorf("%w: %s[%d]", repository.ErrElementNotFound, selector, index)
	}
	return *html, nil
}

// Click sends real mouse events to the element, as a visitor would.
func (p *chromedpPage) Click(ctx context.Context, selector string, index int) error {
	runCtx, cancel := p.scoped(ctx, 0)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrExtractionFailed, selector, err)
	}
	if index >= len(nodes) {
		return fmt.Errorf("%w: %s[%d]", repository.ErrElementNotFound, selector, index)
	}
	if err := chromedp.Run(runCtx, chromedp.MouseClickNode(nodes[index])); err != nil {
		return fmt.Errorf("click %s[%d]: %w", selector, index, err)
	}
	return nil
}

func (p *chromedpPage) Evaluate(ctx context.Context, script string, out any) error {
	runCtx, cancel := p.scoped(ctx, 0)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrExtractionFailed, err)
	}
	return nil
}

func (p *chromedpPage) SetViewport(ctx context.Context, width, height int) error {
	runCtx, cancel := p.scoped(ctx, 0)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.EmulateViewport(int64(width), int64(height)))
}

func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}

func countScript(selector string) string {
	return fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
}

func outerHTMLScript(selector string, index int) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelectorAll(%s)[%d];
  return el ? el.outerHTML : null;
})()`, jsString(selector), index)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
