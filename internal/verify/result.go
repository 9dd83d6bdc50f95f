package verify

import (
	"context"
	"errors"
	"time"
)

// StepResult is the outcome of one step of a run.
type StepResult struct {
	Name     string
	Duration time.Duration
	Error    string
}

// Result is the outcome of one run.
type Result struct {
	ID        string
	Target    string
	Driver    string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool

	FailedStep string
	FailedKind Kind
	Error      string

	Steps             []StepResult
	Screenshot        string
	FailureScreenshot string
	CleanupError      string

	currentStep string
	err         error
}

// Err returns the failure of the run, nil on success.
func (r *Result) Err() error {
	return r.err
}

func (r *Result) finish(now time.Time, err error) {
	r.Duration = now.Sub(r.StartedAt)
	r.err = err
	r.Success = err == nil
	if err == nil {
		return
	}
	r.Error = err.Error()
	var ve *VerificationError
	if errors.As(err, &ve) {
		r.FailedStep = ve.Step
		r.FailedKind = ve.Kind
	}
}

// Step returns the recorded step by name.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// RunN executes the scenario n times, each in a fresh browser. It stops early
// only when ctx is done.
func (r *Runner) RunN(ctx context.Context, n int) []*Result {
	results := make([]*Result, 0, n)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		res, _ := r.Run(ctx)
		results = append(results, res)
	}
	return results
}

// Consistent reports whether every result has the same outcome and failed step.
func Consistent(results []*Result) bool {
	for _, res := range results[min(1, len(results)):] {
		if res.Success != results[0].Success || res.FailedStep != results[0].FailedStep {
			return false
		}
	}
	return true
}

// Sink receives finished runs, e.g. to persist or export them.
type Sink interface {
	Handle(ctx context.Context, res *Result) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, res *Result) error

func (f SinkFunc) Handle(ctx context.Context, res *Result) error {
	return f(ctx, res)
}
