package verify

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/Akanyi/AkayiRawjsonweb/internal/browser"
)

// fakeApp is an in-memory stand-in for the editor page.
type fakeApp struct {
	mu sync.Mutex

	attrs map[string]map[string]string // selector -> attribute -> value
	// clickable selectors; clicking copyButton with an empty editor shows toast
	clickable  map[string]bool
	copyButton string
	toast      string
	editorText string

	// toastAfter delays the toast by that many TextVisible probes
	toastAfter int

	gotoErr       error
	screenshotErr error
	launchErr     error
	panicOnClick  bool

	// observed
	toastShown    bool
	probes        int
	clicks        int
	launches      int
	browserClosed int
	pageClosed    int
	screenshots   []string
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		attrs: map[string]map[string]string{
			"#menu-button":    {"aria-label": "Menu"},
			"#richTextEditor": {"aria-label": "Rich Text Editor"},
			"#copy-json-btn":  {},
		},
		clickable:  map[string]bool{"#copy-json-btn": true},
		copyButton: "#copy-json-btn",
		toast:      "没有内容可复制!",
	}
}

func (a *fakeApp) Name() string { return "fake" }

func (a *fakeApp) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.launchErr != nil {
		return nil, a.launchErr
	}
	a.launches++
	a.toastShown = false
	a.probes = 0
	return &fakeBrowser{app: a}, nil
}

type fakeBrowser struct{ app *fakeApp }

func (b *fakeBrowser) NewPage(ctx context.Context) (browser.Page, error) {
	return &fakePage{app: b.app}, nil
}

func (b *fakeBrowser) Close() error {
	b.app.mu.Lock()
	defer b.app.mu.Unlock()
	b.app.browserClosed++
	return nil
}

type fakePage struct{ app *fakeApp }

func (p *fakePage) Goto(ctx context.Context, url string) error {
	return p.app.gotoErr
}

func (p *fakePage) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	p.app.mu.Lock()
	defer p.app.mu.Unlock()
	el, ok := p.app.attrs[selector]
	if !ok {
		return "", false, nil
	}
	return el[name], true, nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.app.mu.Lock()
	defer p.app.mu.Unlock()
	if p.app.panicOnClick {
		panic("driver blew up")
	}
	if _, ok := p.app.attrs[selector]; !ok {
		return browser.ErrNotFound
	}
	if !p.app.clickable[selector] {
		return browser.ErrNotVisible
	}
	p.app.clicks++
	if selector == p.app.copyButton && p.app.editorText == "" {
		p.app.toastShown = true
	}
	return nil
}

func (p *fakePage) TextVisible(ctx context.Context, text string) (bool, error) {
	p.app.mu.Lock()
	defer p.app.mu.Unlock()
	p.app.probes++
	if !p.app.toastShown || p.app.probes <= p.app.toastAfter {
		return false, nil
	}
	return text == p.app.toast, nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string, fullPage bool) error {
	p.app.mu.Lock()
	defer p.app.mu.Unlock()
	if p.app.screenshotErr != nil {
		return p.app.screenshotErr
	}
	if err := os.WriteFile(path, []byte("\x89PNG fake"), 0o644); err != nil {
		return err
	}
	p.app.screenshots = append(p.app.screenshots, path)
	return nil
}

func (p *fakePage) Close() error {
	p.app.mu.Lock()
	defer p.app.mu.Unlock()
	p.app.pageClosed++
	return nil
}

var errUnreachable = errors.New("connection refused")
