package config

import (
	"fmt"
	"net/url"
	"strings"
)

type validator struct {
	config *Config
	errors []string
}

// Validate checks the configuration for values the runner cannot work with.
func (c *Config) Validate() error {
	v := &validator{config: c}

	v.validateTarget()
	v.validateBrowser()
	v.validateAssert()
	v.validateLogging()

	if len(v.errors) > 0 {
		return fmt.Errorf("config validation failed:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *validator) validateTarget() {
	t := v.config.Target

	if t.URL == "" {
		v.addError("target.url is not set")
	} else if u, err := url.Parse(t.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.addError(fmt.Sprintf("target.url %q must be an absolute http(s) URL", t.URL))
	}

	required := []struct{ key, value string }{
		{"target.menu_button_selector", t.MenuButtonSelector},
		{"target.menu_label", t.MenuLabel},
		{"target.editor_selector", t.EditorSelector},
		{"target.editor_label", t.EditorLabel},
		{"target.copy_button_selector", t.CopyButtonSelector},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			v.addError(r.key + " is not set")
		}
	}
}

func (v *validator) validateBrowser() {
	b := v.config.Browser

	switch b.Driver {
	case "playwright", "chromedp":
	default:
		v.addError(fmt.Sprintf("browser.driver %q is not supported (playwright, chromedp)", b.Driver))
	}
	if b.NavigationTimeout <= 0 {
		v.addError("browser.navigation_timeout must be positive")
	}
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		v.addError("browser.viewport must have a positive width and height")
	}
}

func (v *validator) validateAssert() {
	a := v.config.Assert

	if a.Timeout <= 0 {
		v.addError("assert.timeout must be positive")
	}
	if a.Interval <= 0 {
		v.addError("assert.interval must be positive")
	} else if a.Interval >= a.Timeout {
		v.addError("assert.interval must be shorter than assert.timeout")
	}
}

func (v *validator) validateLogging() {
	switch v.config.Logging.Format {
	case "", "text", "json":
	default:
		v.addError(fmt.Sprintf("logging.format %q is not supported (text, json)", v.config.Logging.Format))
	}
}

func (v *validator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
