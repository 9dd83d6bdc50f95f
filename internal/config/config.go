package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "VERIFY"

var (
	cfg *Config
	mu  sync.RWMutex
)

// Config represents the verification runner configuration
type Config struct {
	Target    TargetConfig    `mapstructure:"target" yaml:"target"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Assert    AssertConfig    `mapstructure:"assert" yaml:"assert"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Preflight PreflightConfig `mapstructure:"preflight" yaml:"preflight"`
	History   HistoryConfig   `mapstructure:"history" yaml:"history"`
	Schedule  ScheduleConfig  `mapstructure:"schedule" yaml:"schedule"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// TargetConfig describes the application under test and what the scenario expects of it.
type TargetConfig struct {
	URL                string `mapstructure:"url" yaml:"url"`
	Locale             string `mapstructure:"locale" yaml:"locale"`
	MenuButtonSelector string `mapstructure:"menu_button_selector" yaml:"menu_button_selector"`
	MenuLabel          string `mapstructure:"menu_label" yaml:"menu_label"`
	EditorSelector     string `mapstructure:"editor_selector" yaml:"editor_selector"`
	EditorLabel        string `mapstructure:"editor_label" yaml:"editor_label"`
	CopyButtonSelector string `mapstructure:"copy_button_selector" yaml:"copy_button_selector"`
	// Empty means "look it up in the i18n catalog for Locale".
	EmptyCopyToastText string `mapstructure:"empty_copy_toast_text" yaml:"empty_copy_toast_text"`
}

type BrowserConfig struct {
	Driver            string        `mapstructure:"driver" yaml:"driver"`
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	SlowMo            time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
	Install           bool          `mapstructure:"install" yaml:"install"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Viewport          struct {
		Width  int `mapstructure:"width" yaml:"width"`
		Height int `mapstructure:"height" yaml:"height"`
	} `mapstructure:"viewport" yaml:"viewport"`
}

type AssertConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

type ArtifactsConfig struct {
	ScreenshotPath     string `mapstructure:"screenshot_path" yaml:"screenshot_path"`
	FullPage           bool   `mapstructure:"full_page" yaml:"full_page"`
	ScreenshotRequired bool   `mapstructure:"screenshot_required" yaml:"screenshot_required"`
	CreateDirs         bool   `mapstructure:"create_dirs" yaml:"create_dirs"`
	ReportPath         string `mapstructure:"report_path" yaml:"report_path"`
	MetricsPath        string `mapstructure:"metrics_path" yaml:"metrics_path"`
}

// FailureScreenshotPath returns the path used for the diagnostic capture taken when a run fails.
func (a *ArtifactsConfig) FailureScreenshotPath() string {
	if a.ScreenshotPath == "" {
		return ""
	}
	ext := filepath.Ext(a.ScreenshotPath)
	return strings.TrimSuffix(a.ScreenshotPath, ext) + "_failure" + ext
}

type PreflightConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type ScheduleConfig struct {
	Cron    string        `mapstructure:"cron" yaml:"cron"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the built-in scenario on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("target.url", "http://localhost:8080")
	v.SetDefault("target.locale", "zh-CN")
	v.SetDefault("target.menu_button_selector", "#menu-button")
	v.SetDefault("target.menu_label", "Menu")
	v.SetDefault("target.editor_selector", "#richTextEditor")
	v.SetDefault("target.editor_label", "Rich Text Editor")
	v.SetDefault("target.copy_button_selector", "#copy-json-btn")
	v.SetDefault("target.empty_copy_toast_text", "")

	v.SetDefault("browser.driver", "playwright")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.install", false)
	v.SetDefault("browser.navigation_timeout", 30*time.Second)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)

	v.SetDefault("assert.timeout", 5*time.Second)
	v.SetDefault("assert.interval", 100*time.Millisecond)

	v.SetDefault("artifacts.screenshot_path", "verification/toast_verification.png")
	v.SetDefault("artifacts.full_page", true)
	v.SetDefault("artifacts.screenshot_required", false)
	v.SetDefault("artifacts.create_dirs", true)
	v.SetDefault("artifacts.report_path", "")
	v.SetDefault("artifacts.metrics_path", "")

	v.SetDefault("preflight.enabled", true)
	v.SetDefault("preflight.timeout", 2*time.Second)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "verification/history.db")

	v.SetDefault("schedule.cron", "@every 5m")
	v.SetDefault("schedule.timeout", 2*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// New builds a viper instance with defaults, the optional config file and VERIFY_* env overrides.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("verify")
		v.AddConfigPath(".")
		v.AddConfigPath("verification")
		if err := v.ReadInConfig(); err != nil {
			// It's OK if verify.yaml doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the configuration and installs it as the current snapshot.
func Load(configFile string) (*viper.Viper, error) {
	v, err := New(configFile)
	if err != nil {
		return nil, err
	}
	c, err := Decode(v)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cfg = c
	mu.Unlock()

	return v, nil
}

// Watch reloads the configuration whenever its file changes and hands the new
// snapshot to onChange. Invalid edits keep the previous snapshot.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		newCfg, err := Decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to reload config %s: %w", e.Name, err))
			}
			return
		}

		// Atomic swap
		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if onChange != nil {
			onChange(newCfg)
		}
	})
	v.WatchConfig()
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		panic(fmt.Sprintf("default config does not decode: %v", err))
	}
	return c
}
