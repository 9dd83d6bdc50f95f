package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

func sampleResults() []*verify.Result {
	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	return []*verify.Result{
		{
			ID:         "run-1",
			Target:     "http://localhost:8080",
			Driver:     "playwright",
			StartedAt:  started,
			Duration:   1500 * time.Millisecond,
			Success:    true,
			Screenshot: "verification/toast_verification.png",
			Steps: []verify.StepResult{
				{Name: verify.StepNavigate, Duration: 700 * time.Millisecond},
				{Name: verify.StepToast, Duration: 120 * time.Millisecond},
			},
		},
		{
			ID:         "run-2",
			Target:     "http://localhost:8080",
			Driver:     "playwright",
			StartedAt:  started.Add(time.Minute),
			Duration:   5 * time.Second,
			FailedStep: verify.StepToast,
			FailedKind: verify.KindAssertion,
			Error:      "toast_visible failed (assertion): timed out",
			Steps: []verify.StepResult{
				{Name: verify.StepToast, Duration: 5 * time.Second, Error: "timed out"},
			},
		},
	}
}

func TestNew(t *testing.T) {
	rep := New(sampleResults())

	require.Len(t, rep.Runs, 2)
	assert.False(t, rep.Consistent)
	assert.Equal(t, int64(1500), rep.Runs[0].DurationMS)
	assert.Equal(t, "assertion", rep.Runs[1].FailedKind)
	assert.Equal(t, int64(700), rep.Runs[0].Steps[0].DurationMS)
}

func TestWrite(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "report.yaml")
		require.NoError(t, Write(path, sampleResults()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var rep Report
		require.NoError(t, yaml.Unmarshal(data, &rep))
		require.Len(t, rep.Runs, 2)
		assert.Equal(t, "run-2", rep.Runs[1].ID)
		assert.Equal(t, verify.StepToast, rep.Runs[1].FailedStep)
		assert.NotContains(t, string(data), "failure_screenshot")
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, Write(path, sampleResults()[:1]))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var rep Report
		require.NoError(t, json.Unmarshal(data, &rep))
		assert.True(t, rep.Consistent)
		assert.True(t, rep.Runs[0].Success)
		assert.Equal(t, "verification/toast_verification.png", rep.Runs[0].Screenshot)
	})
}
