package verify

import (
	"fmt"
	"time"

	"github.com/Akanyi/AkayiRawjsonweb/internal/browser"
	"github.com/Akanyi/AkayiRawjsonweb/internal/config"
	"github.com/Akanyi/AkayiRawjsonweb/internal/i18n"
)

// Scenario is the fixed check run against the editor: two ARIA labels, then
// the toast shown when copy is pressed with nothing in the editor.
type Scenario struct {
	URL                string
	MenuButtonSelector string
	MenuLabel          string
	EditorSelector     string
	EditorLabel        string
	CopyButtonSelector string
	EmptyCopyToastText string

	ScreenshotPath        string
	FailureScreenshotPath string
	FullPage              bool
	ScreenshotRequired    bool
	CreateDirs            bool
}

// Options carries the runner's timing and browser settings.
type Options struct {
	Poll             PollOptions
	Launch           browser.LaunchOptions
	Preflight        bool
	PreflightTimeout time.Duration
}

// FromConfig builds the scenario and runner options described by cfg.
func FromConfig(cfg *config.Config) (Scenario, Options, error) {
	toast := cfg.Target.EmptyCopyToastText
	if toast == "" {
		msg, err := i18n.EmptyCopyMessage(cfg.Target.Locale)
		if err != nil {
			return Scenario{}, Options{}, fmt.Errorf("resolve toast text for %q: %w", cfg.Target.Locale, err)
		}
		toast = msg
	}

	s := Scenario{
		URL:                   cfg.Target.URL,
		MenuButtonSelector:    cfg.Target.MenuButtonSelector,
		MenuLabel:             cfg.Target.MenuLabel,
		EditorSelector:        cfg.Target.EditorSelector,
		EditorLabel:           cfg.Target.EditorLabel,
		CopyButtonSelector:    cfg.Target.CopyButtonSelector,
		EmptyCopyToastText:    toast,
		ScreenshotPath:        cfg.Artifacts.ScreenshotPath,
		FailureScreenshotPath: cfg.Artifacts.FailureScreenshotPath(),
		FullPage:              cfg.Artifacts.FullPage,
		ScreenshotRequired:    cfg.Artifacts.ScreenshotRequired,
		CreateDirs:            cfg.Artifacts.CreateDirs,
	}
	o := Options{
		Poll: PollOptions{
			Timeout:  cfg.Assert.Timeout,
			Interval: cfg.Assert.Interval,
		},
		Launch: browser.LaunchOptions{
			Headless:          cfg.Browser.Headless,
			SlowMo:            cfg.Browser.SlowMo,
			Install:           cfg.Browser.Install,
			NavigationTimeout: cfg.Browser.NavigationTimeout,
			ViewportWidth:     cfg.Browser.Viewport.Width,
			ViewportHeight:    cfg.Browser.Viewport.Height,
		},
		Preflight:        cfg.Preflight.Enabled,
		PreflightTimeout: cfg.Preflight.Timeout,
	}
	return s, o, nil
}
