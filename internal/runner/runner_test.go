package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	name     string
	schedule string
	timeout  time.Duration
	err      error
	panics   bool
	delay    time.Duration
	runs     atomic.Int32
	finished atomic.Int32
	sawDL    atomic.Bool
}

func (c *countingTask) Name() string           { return c.name }
func (c *countingTask) Schedule() string       { return c.schedule }
func (c *countingTask) Timeout() time.Duration { return c.timeout }
func (c *countingTask) Run(ctx context.Context) error {
	c.runs.Add(1)
	if _, ok := ctx.Deadline(); ok {
		c.sawDL.Store(true)
	}
	if c.panics {
		panic("driver crashed")
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.finished.Add(1)
	return c.err
}

func TestTaskRegistry(t *testing.T) {
	r := NewTaskRegistry()
	require.NoError(t, r.Register(&countingTask{name: "b"}))
	require.NoError(t, r.Register(&countingTask{name: "a"}))

	assert.Error(t, r.Register(&countingTask{name: "a"}), "duplicate names are rejected")
	assert.Equal(t, []string{"a", "b"}, r.Names())

	task, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "a", task.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Len(t, r.All(), 2)
}

func TestExecuteTask(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := NewRunner(NewTaskRegistry(), logger)

	t.Run("success", func(t *testing.T) {
		task := &countingTask{name: "ok", timeout: time.Second}
		r.executeTask(context.Background(), task)

		assert.EqualValues(t, 1, task.runs.Load())
		assert.True(t, task.sawDL.Load(), "task runs under its timeout")
		assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	})

	t.Run("failure is logged, not propagated", func(t *testing.T) {
		task := &countingTask{name: "bad", timeout: time.Second, err: errors.New("toast missing")}
		r.executeTask(context.Background(), task)

		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		assert.Equal(t, "bad", hook.LastEntry().Data["task"])

		st, ok := r.Status("bad")
		require.True(t, ok)
		assert.Equal(t, 1, st.Runs)
		assert.Equal(t, 1, st.Failures)
		assert.EqualError(t, st.Err, "toast missing")
	})

	t.Run("panic is contained", func(t *testing.T) {
		task := &countingTask{name: "boom", timeout: time.Second, panics: true}
		assert.NotPanics(t, func() { r.executeTask(context.Background(), task) })

		st, ok := r.Status("boom")
		require.True(t, ok)
		assert.Contains(t, st.Err.Error(), "task boom panicked")
	})

	t.Run("status accumulates", func(t *testing.T) {
		task := &countingTask{name: "twice", timeout: time.Second}
		r.executeTask(context.Background(), task)
		r.executeTask(context.Background(), task)

		st, _ := r.Status("twice")
		assert.Equal(t, 2, st.Runs)
		assert.Zero(t, st.Failures)
		assert.NoError(t, st.Err)
		assert.False(t, st.LastRun.IsZero())

		_, ok := r.Status("never")
		assert.False(t, ok)
	})
}

func TestRunnerStart(t *testing.T) {
	t.Run("runs scheduled task until context is cancelled", func(t *testing.T) {
		logger, _ := logtest.NewNullLogger()
		reg := NewTaskRegistry()
		task := &countingTask{name: "tick", schedule: "* * * * * *", timeout: time.Second}
		require.NoError(t, reg.Register(task))

		ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
		defer cancel()

		err := NewRunner(reg, logger).Start(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.GreaterOrEqual(t, task.runs.Load(), int32(1))
	})

	t.Run("run on start", func(t *testing.T) {
		logger, _ := logtest.NewNullLogger()
		reg := NewTaskRegistry()
		task := &countingTask{name: "now", schedule: "@every 1h", timeout: time.Second}
		require.NoError(t, reg.Register(task))

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		r := NewRunner(reg, logger, WithRunOnStart())
		assert.ErrorIs(t, r.Start(ctx), context.DeadlineExceeded)
		assert.EqualValues(t, 1, task.runs.Load())

		st, ok := r.Status("now")
		require.True(t, ok)
		assert.Equal(t, 1, st.Runs)
	})

	t.Run("stop drains jobs started by cron", func(t *testing.T) {
		logger, _ := logtest.NewNullLogger()
		reg := NewTaskRegistry()
		task := &countingTask{name: "slow", schedule: "* * * * * *", timeout: 5 * time.Second, delay: 400 * time.Millisecond}
		require.NoError(t, reg.Register(task))

		// cancel while the first tick's job is still sleeping
		ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
		defer cancel()

		assert.ErrorIs(t, NewRunner(reg, logger).Start(ctx), context.DeadlineExceeded)
		require.GreaterOrEqual(t, task.runs.Load(), int32(1))
		assert.Equal(t, task.runs.Load(), task.finished.Load(), "Start returned with a job still running")
	})

	t.Run("invalid schedule", func(t *testing.T) {
		logger, _ := logtest.NewNullLogger()
		reg := NewTaskRegistry()
		require.NoError(t, reg.Register(&countingTask{name: "bad", schedule: "not a cron"}))

		err := NewRunner(reg, logger).Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to schedule task bad")
	})
}
