// Package verify runs the toast smoke scenario against a live page and reports
// which step, if any, did not hold.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Akanyi/AkayiRawjsonweb/internal/browser"
	"github.com/Akanyi/AkayiRawjsonweb/internal/config"
)

// Step names, in execution order.
const (
	StepPreflight   = "preflight"
	StepLaunch      = "launch"
	StepNewPage     = "new_page"
	StepNavigate    = "navigate"
	StepMenuLabel   = "menu_aria_label"
	StepEditorLabel = "editor_aria_label"
	StepClickCopy   = "click_copy"
	StepToast       = "toast_visible"
	StepScreenshot  = "screenshot"
)

// Runner executes a Scenario in a fresh browser on every Run.
type Runner struct {
	launcher browser.Launcher
	scenario Scenario
	opts     Options
	logger   logrus.FieldLogger

	// replaced in tests
	probe func(ctx context.Context, url string, timeout time.Duration) error
	now   func() time.Time
}

// NewRunner creates a runner for scenario using launcher.
func NewRunner(launcher browser.Launcher, scenario Scenario, opts Options, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		logger = l
	}
	return &Runner{
		launcher: launcher,
		scenario: scenario,
		opts:     opts,
		logger:   logger,
		probe:    config.Reachable,
		now:      time.Now,
	}
}

// Scenario returns the scenario the runner executes.
func (r *Runner) Scenario() Scenario {
	return r.scenario
}

// Run executes the scenario once. The returned Result is never nil; err is the
// same failure recorded on the result, as a *VerificationError.
func (r *Runner) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{
		ID:        uuid.NewString(),
		Target:    r.scenario.URL,
		Driver:    r.launcher.Name(),
		StartedAt: r.now(),
	}
	log := r.logger.WithFields(logrus.Fields{
		"run_id": res.ID,
		"target": res.Target,
		"driver": res.Driver,
	})

	defer func() {
		if p := recover(); p != nil {
			err = &VerificationError{Step: res.currentStep, Kind: KindInternal, Err: fmt.Errorf("panic: %v", p)}
		}
		res.finish(r.now(), err)
		if err != nil {
			log.WithError(err).Error("Verification failed")
		} else {
			log.WithField("duration", res.Duration).Info("Verification passed")
		}
	}()

	err = r.run(ctx, res, log)
	return res, err
}

func (r *Runner) run(ctx context.Context, res *Result, log logrus.FieldLogger) error {
	s := r.scenario

	if r.opts.Preflight {
		if err := r.step(res, log, StepPreflight, KindNavigation, func() error {
			return r.probe(ctx, s.URL, r.opts.PreflightTimeout)
		}); err != nil {
			return err
		}
	}

	var b browser.Browser
	if err := r.step(res, log, StepLaunch, KindLaunch, func() error {
		var err error
		b, err = r.launcher.Launch(ctx, r.opts.Launch)
		return err
	}); err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
			res.CleanupError = err.Error()
		}
		log.Debug("Browser closed")
	}()

	var page browser.Page
	if err := r.step(res, log, StepNewPage, KindLaunch, func() error {
		var err error
		page, err = b.NewPage(ctx)
		return err
	}); err != nil {
		return err
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.WithError(err).Debug("Failed to close page")
		}
	}()

	err := r.steps(ctx, res, log, page)
	var ve *VerificationError
	if errors.As(err, &ve) && ve.Step != StepScreenshot {
		r.captureFailure(ctx, res, log, page)
	}
	return err
}

func (r *Runner) steps(ctx context.Context, res *Result, log logrus.FieldLogger, page browser.Page) error {
	s := r.scenario

	if err := r.step(res, log, StepNavigate, KindNavigation, func() error {
		return page.Goto(ctx, s.URL)
	}); err != nil {
		return err
	}

	if err := r.step(res, log, StepMenuLabel, KindAssertion, func() error {
		return r.expectAttribute(ctx, page, s.MenuButtonSelector, "aria-label", s.MenuLabel)
	}); err != nil {
		return err
	}

	if err := r.step(res, log, StepEditorLabel, KindAssertion, func() error {
		return r.expectAttribute(ctx, page, s.EditorSelector, "aria-label", s.EditorLabel)
	}); err != nil {
		return err
	}

	if err := r.step(res, log, StepClickCopy, KindInteraction, func() error {
		return Until(ctx, r.opts.Poll, "click on", s.CopyButtonSelector, func(ctx context.Context) (bool, error) {
			if err := page.Click(ctx, s.CopyButtonSelector); err != nil {
				return false, err
			}
			return true, nil
		})
	}); err != nil {
		return err
	}

	if err := r.step(res, log, StepToast, KindAssertion, func() error {
		return r.expectVisibleText(ctx, page, s.EmptyCopyToastText)
	}); err != nil {
		return err
	}

	return r.screenshot(ctx, res, log, page)
}

func (r *Runner) expectAttribute(ctx context.Context, page browser.Page, selector, name, expected string) error {
	return Until(ctx, r.opts.Poll, "attribute "+name+" on", selector, func(ctx context.Context) (bool, error) {
		value, found, err := page.Attribute(ctx, selector, name)
		if err != nil {
			return false, err
		}
		if !found || value != expected {
			return false, &AssertionError{Selector: selector, Attribute: name, Expected: expected, Observed: value, Found: found}
		}
		return true, nil
	})
}

func (r *Runner) expectVisibleText(ctx context.Context, page browser.Page, text string) error {
	return Until(ctx, r.opts.Poll, "visible text", fmt.Sprintf("%q", text), func(ctx context.Context) (bool, error) {
		visible, err := page.TextVisible(ctx, text)
		if err != nil {
			return false, err
		}
		if !visible {
			return false, &AssertionError{Expected: text}
		}
		return true, nil
	})
}

// screenshot is best-effort unless the scenario requires it.
func (r *Runner) screenshot(ctx context.Context, res *Result, log logrus.FieldLogger, page browser.Page) error {
	s := r.scenario
	if s.ScreenshotPath == "" {
		return nil
	}

	err := r.step(res, log, StepScreenshot, KindIO, func() error {
		return r.writeScreenshot(ctx, page, s.ScreenshotPath)
	})
	if err == nil {
		res.Screenshot = s.ScreenshotPath
		return nil
	}
	if s.ScreenshotRequired {
		return err
	}
	log.WithError(err).Warn("Screenshot failed, continuing")
	return nil
}

func (r *Runner) writeScreenshot(ctx context.Context, page browser.Page, path string) error {
	if r.scenario.CreateDirs {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create screenshot directory: %w", err)
			}
		}
	}
	if err := page.Screenshot(ctx, path, r.scenario.FullPage); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}
	return nil
}

func (r *Runner) captureFailure(ctx context.Context, res *Result, log logrus.FieldLogger, page browser.Page) {
	path := r.scenario.FailureScreenshotPath
	if path == "" || errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	if err := r.writeScreenshot(ctx, page, path); err != nil {
		log.WithError(err).Debug("Failure screenshot not captured")
		return
	}
	res.FailureScreenshot = path
	log.WithField("path", path).Info("Saved failure screenshot")
}

// step runs fn as the named step, records its outcome on res and wraps any
// error in a *VerificationError of the given kind.
func (r *Runner) step(res *Result, log logrus.FieldLogger, name string, kind Kind, fn func() error) error {
	res.currentStep = name
	start := r.now()
	err := fn()
	sr := StepResult{Name: name, Duration: r.now().Sub(start)}

	slog := log.WithField("step", name)
	if err != nil {
		sr.Error = err.Error()
		res.Steps = append(res.Steps, sr)
		slog.WithError(err).Debug("Step failed")
		return &VerificationError{Step: name, Kind: kind, Err: err}
	}
	res.Steps = append(res.Steps, sr)
	slog.WithField("duration", sr.Duration).Debug("Step passed")
	return nil
}
