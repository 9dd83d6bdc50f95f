package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Akanyi/AkayiRawjsonweb/internal/runner"
	"github.com/Akanyi/AkayiRawjsonweb/internal/verify"
)

// Verifier runs the scenario once.
type Verifier interface {
	Run(ctx context.Context) (*verify.Result, error)
}

// VerificationTask re-runs the toast scenario on a schedule and hands each
// result to the configured sinks.
type VerificationTask struct {
	verifier Verifier
	schedule string
	timeout  time.Duration
	sinks    []verify.Sink
	logger   logrus.FieldLogger
}

// NewVerificationTask creates a scheduled verification task
func NewVerificationTask(v Verifier, schedule string, timeout time.Duration, logger logrus.FieldLogger, sinks ...verify.Sink) runner.Task {
	return &VerificationTask{
		verifier: v,
		schedule: schedule,
		timeout:  timeout,
		sinks:    sinks,
		logger:   logger.WithField("task", "toast-verification"),
	}
}

// Name returns the task name
func (t *VerificationTask) Name() string {
	return "toast-verification"
}

func (t *VerificationTask) Schedule() string {
	return t.schedule
}

func (t *VerificationTask) Timeout() time.Duration {
	return t.timeout
}

// Run executes one verification. A failing scenario is reported through the
// returned error after every sink has seen the result.
func (t *VerificationTask) Run(ctx context.Context) error {
	res, runErr := t.verifier.Run(ctx)
	if res == nil {
		return runErr
	}

	var sinkErrs []error
	for _, s := range t.sinks {
		if err := s.Handle(ctx, res); err != nil {
			t.logger.WithError(err).WithField("run_id", res.ID).Warn("Failed to publish verification result")
			sinkErrs = append(sinkErrs, err)
		}
	}

	if runErr != nil {
		return runErr
	}
	return errors.Join(sinkErrs...)
}
