// Package report serializes verification results for CI artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

// Report is the serialized form of one or more runs.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Consistent  bool      `json:"consistent" yaml:"consistent"`
	Runs        []Run     `json:"runs" yaml:"runs"`
}

// Run is the serialized form of a verify.Result.
type Run struct {
	ID                string    `json:"id" yaml:"id"`
	Target            string    `json:"target" yaml:"target"`
	Driver            string    `json:"driver" yaml:"driver"`
	StartedAt         time.Time `json:"started_at" yaml:"started_at"`
	DurationMS        int64     `json:"duration_ms" yaml:"duration_ms"`
	Success           bool      `json:"success" yaml:"success"`
	FailedStep        string    `json:"failed_step,omitempty" yaml:"failed_step,omitempty"`
	FailedKind        string    `json:"failed_kind,omitempty" yaml:"failed_kind,omitempty"`
	Error             string    `json:"error,omitempty" yaml:"error,omitempty"`
	Screenshot        string    `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	FailureScreenshot string    `json:"failure_screenshot,omitempty" yaml:"failure_screenshot,omitempty"`
	Steps             []Step    `json:"steps" yaml:"steps"`
}

type Step struct {
	Name       string `json:"name" yaml:"name"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// New builds a report from results.
func New(results []*verify.Result) *Report {
	rep := &Report{
		GeneratedAt: time.Now().UTC(),
		Consistent:  verify.Consistent(results),
		Runs:        make([]Run, 0, len(results)),
	}
	for _, res := range results {
		run := Run{
			ID:                res.ID,
			Target:            res.Target,
			Driver:            res.Driver,
			StartedAt:         res.StartedAt.UTC(),
			DurationMS:        res.Duration.Milliseconds(),
			Success:           res.Success,
			FailedStep:        res.FailedStep,
			FailedKind:        string(res.FailedKind),
			Error:             res.Error,
			Screenshot:        res.Screenshot,
			FailureScreenshot: res.FailureScreenshot,
			Steps:             make([]Step, 0, len(res.Steps)),
		}
		for _, s := range res.Steps {
			run.Steps = append(run.Steps, Step{Name: s.Name, DurationMS: s.Duration.Milliseconds(), Error: s.Error})
		}
		rep.Runs = append(rep.Runs, run)
	}
	return rep
}

// Marshal encodes the report as JSON for ".json" paths and YAML otherwise.
func (r *Report) Marshal(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.MarshalIndent(r, "", "  ")
	default:
		return yaml.Marshal(r)
	}
}

// Write saves the report to path, creating parent directories.
func Write(path string, results []*verify.Result) error {
	data, err := New(results).Marshal(path)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
