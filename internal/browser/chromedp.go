package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// browserStartTimeout bounds starting Chrome and attaching a tab.
const browserStartTimeout = 30 * time.Second

// runActions is chromedp.Run; tests replace it.
var runActions = chromedp.Run

// runOwned performs the first Run on target, the one that starts the browser
// or attaches the tab. chromedp binds the process and the tab's event loop to
// the context of that first Run, so it must be target itself: a derived
// timeout would tear both down as soon as the call returns. ctx and limit are
// enforced by calling cancel instead.
func runOwned(ctx, target context.Context, cancel context.CancelFunc, limit time.Duration, actions ...chromedp.Action) error {
	if d, ok := ctx.Deadline(); ok && (limit <= 0 || time.Until(d) < limit) {
		limit = time.Until(d)
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if limit > 0 {
		timer := time.AfterFunc(limit, cancel)
		defer timer.Stop()
	}

	err := runActions(target, actions...)
	if err == nil {
		// a cancel racing the last action leaves nothing usable behind
		err = target.Err()
	}
	return err
}

// ChromedpLauncher drives a local Chrome/Chromium directly over the DevTools protocol.
type ChromedpLauncher struct {
	// ExecPath overrides Chrome discovery when set.
	ExecPath string
}

// NewChromedp creates a chromedp launcher using the Chrome found on PATH.
func NewChromedp() *ChromedpLauncher {
	return &ChromedpLauncher{ExecPath: os.Getenv("CHROME_BIN")}
}

func (l *ChromedpLauncher) Name() string { return "chromedp" }

// Launch starts Chrome. The browser outlives ctx's cancellation and is stopped by Close.
func (l *ChromedpLauncher) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	if l.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := runOwned(ctx, browserCtx, browserCancel, browserStartTimeout); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	return &chromedpBrowser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		opts:        opts,
	}, nil
}

type chromedpBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opts        LaunchOptions
}

func (b *chromedpBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(b.ctx)
	p := &chromedpPage{ctx: tabCtx, cancel: tabCancel, slowMo: b.opts.SlowMo, navTimeout: b.opts.NavigationTimeout}
	viewport := chromedp.EmulateViewport(int64(b.opts.ViewportWidth), int64(b.opts.ViewportHeight))
	if err := runOwned(ctx, tabCtx, tabCancel, browserStartTimeout, viewport); err != nil {
		tabCancel()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	return p, nil
}

func (b *chromedpBrowser) Close() error {
	// Cancelling the browser context closes Chrome gracefully.
	b.cancel()
	b.allocCancel()
	return nil
}

type chromedpPage struct {
	ctx        context.Context
	cancel     context.CancelFunc
	slowMo     time.Duration
	navTimeout time.Duration
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if p.slowMo > 0 {
		actions = append([]chromedp.Action{chromedp.Sleep(p.slowMo)}, actions...)
	}
	return runActions(runCtx, actions...)
}

func (p *chromedpPage) Goto(ctx context.Context, url string) error {
	if timeout := navigationTimeout(ctx, p.navTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.run(ctx, chromedp.Navigate(url))
}

type attributeProbe struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

func (p *chromedpPage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return {found: false, value: ""};
		return {found: true, value: el.getAttribute(%s) || ""};
	})()`, jsString(selector), jsString(name))

	var probe attributeProbe
	if err := p.run(ctx, chromedp.Evaluate(js, &probe)); err != nil {
		return "", false, err
	}
	return probe.Value, probe.Found, nil
}

// visibleJS mirrors Playwright's notion of visible: a non-empty box and not visibility:hidden.
const visibleJS = `function visible(el) {
	const r = el.getBoundingClientRect();
	if (r.width <= 0 || r.height <= 0) return false;
	return window.getComputedStyle(el).visibility !== 'hidden';
}`

func (p *chromedpPage) Click(ctx context.Context, selector string) error {
	js := fmt.Sprintf(`(() => {
		%s
		const el = document.querySelector(%s);
		if (!el) return "missing";
		return visible(el) ? "ok" : "hidden";
	})()`, visibleJS, jsString(selector))

	var state string
	if err := p.run(ctx, chromedp.Evaluate(js, &state)); err != nil {
		return err
	}
	switch state {
	case "missing":
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	case "hidden":
		return fmt.Errorf("%s: %w", selector, ErrNotVisible)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, clickAttemptTimeout)
	defer cancel()
	return p.run(attemptCtx, chromedp.Click(selector, chromedp.ByQuery))
}

func (p *chromedpPage) TextVisible(ctx context.Context, text string) (bool, error) {
	js := fmt.Sprintf(`(() => {
		%s
		const want = %s;
		const norm = s => s.replace(/\s+/g, " ").trim();
		for (const el of document.querySelectorAll("body *")) {
			if (norm(el.textContent || "") === want && visible(el)) return true;
		}
		return false;
	})()`, visibleJS, jsString(text))

	var ok bool
	if err := p.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *chromedpPage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// quality 100 keeps PNG encoding
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := p.run(ctx, action); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

func (p *chromedpPage) Close() error {
	p.cancel()
	return nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
