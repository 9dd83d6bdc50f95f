// Package browser drives a real browser over an automation protocol.
//
// Probes on Page are one-shot: they report what the page looks like right now
// and never wait for a condition to become true. Callers that need an
// eventually-consistent assertion wrap them in a poll loop.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrNotFound means no element matched the selector.
	ErrNotFound = errors.New("element not found")
	// ErrNotVisible means the element exists but cannot receive input.
	ErrNotVisible = errors.New("element not visible")
)

// LaunchOptions configures the browser process.
type LaunchOptions struct {
	Headless          bool
	SlowMo            time.Duration
	Install           bool
	NavigationTimeout time.Duration
	ViewportWidth     int
	ViewportHeight    int
}

// Launcher starts browser processes.
type Launcher interface {
	Name() string
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser owns pages; closing it closes all of them and stops the process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single navigable document.
type Page interface {
	// Goto navigates and waits for the load event.
	Goto(ctx context.Context, url string) error
	// Attribute returns the attribute of the first element matching selector.
	// found is false when no element matches; value is "" when the attribute is absent.
	Attribute(ctx context.Context, selector, name string) (value string, found bool, err error)
	// Click dispatches a real click on the first element matching selector.
	Click(ctx context.Context, selector string) error
	// TextVisible reports whether an element whose text is exactly text is visible.
	TextVisible(ctx context.Context, text string) (bool, error)
	// Screenshot writes a PNG to path, overwriting any existing file.
	Screenshot(ctx context.Context, path string, fullPage bool) error
	Close() error
}

// navigationTimeout is the budget for one navigation: the configured limit,
// cut short by ctx's deadline when that comes first. Zero means unbounded.
func navigationTimeout(ctx context.Context, limit time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return limit
	}
	remaining := max(time.Until(deadline), time.Millisecond)
	if limit <= 0 {
		return remaining
	}
	return min(limit, remaining)
}

var launchers = map[string]func() Launcher{
	"playwright": func() Launcher { return NewPlaywright() },
	"chromedp":   func() Launcher { return NewChromedp() },
}

// New returns the launcher registered under name.
func New(name string) (Launcher, error) {
	f, ok := launchers[name]
	if !ok {
		return nil, fmt.Errorf("unknown browser driver %q (available: %v)", name, Drivers())
	}
	return f(), nil
}

// Drivers lists the registered driver names.
func Drivers() []string {
	names := make([]string, 0, len(launchers))
	for name := range launchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
