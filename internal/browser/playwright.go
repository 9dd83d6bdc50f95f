package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// clickAttemptTimeout bounds a single click attempt; the caller's poll loop retries.
const clickAttemptTimeout = 250 * time.Millisecond

// PlaywrightLauncher drives Chromium through the Playwright driver.
type PlaywrightLauncher struct{}

// NewPlaywright creates a Playwright launcher.
func NewPlaywright() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

func (l *PlaywrightLauncher) Name() string { return "playwright" }

// Launch starts the Playwright driver and a Chromium instance.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	return &playwrightBrowser{pw: pw, browser: browser, opts: opts}, nil
}

type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    LaunchOptions
}

func (b *playwrightBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	if b.opts.NavigationTimeout > 0 {
		page.SetDefaultNavigationTimeout(float64(b.opts.NavigationTimeout.Milliseconds()))
	}
	return &playwrightPage{context: bctx, page: page, navTimeout: b.opts.NavigationTimeout}, nil
}

func (b *playwrightBrowser) Close() error {
	var errs []error
	if err := b.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

type playwrightPage struct {
	context    playwright.BrowserContext
	page       playwright.Page
	navTimeout time.Duration
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}
	if timeout := navigationTimeout(ctx, p.navTimeout); timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	resp, err := p.page.Goto(url, opts)
	if err != nil {
		if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
			return fmt.Errorf("redirect loop navigating to %s: %w", url, err)
		}
		return err
	}
	if resp != nil && resp.Status() >= 400 {
		return fmt.Errorf("navigating to %s: HTTP %d", url, resp.Status())
	}
	return nil
}

func (p *playwrightPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		return "", false, nil
	}
	v, err := loc.First().Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return "", true, err
	}
	s, _ := v.(string)
	return s, true, nil
}

func (p *playwrightPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	visible, err := loc.First().IsVisible()
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("%s: %w", selector, ErrNotVisible)
	}
	return loc.First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(clickAttemptTimeout.Milliseconds())),
	})
}

func (p *playwrightPage) TextVisible(ctx context.Context, text string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	loc := p.page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(true)})
	n, err := loc.Count()
	if err != nil {
		return false, err
	}
	for i := 0; i < n; i++ {
		visible, err := loc.Nth(i).IsVisible()
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

func (p *playwrightPage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	return err
}

func (p *playwrightPage) Close() error {
	var errs []error
	if err := p.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := p.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	return errors.Join(errs...)
}
