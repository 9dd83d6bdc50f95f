package runner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Status is the outcome of a task's most recent execution.
type Status struct {
	Runs     int
	Failures int
	LastRun  time.Time
	Duration time.Duration
	Err      error
}

// Option configures a Runner.
type Option func(*Runner)

// WithRunOnStart executes every task once as soon as the runner starts,
// instead of waiting for the first cron tick.
func WithRunOnStart() Option {
	return func(r *Runner) { r.runOnStart = true }
}

// Runner fires registered tasks on their cron schedules.
type Runner struct {
	cron       *cron.Cron
	registry   *TaskRegistry
	logger     logrus.FieldLogger
	runOnStart bool

	wg sync.WaitGroup

	mu     sync.Mutex
	status map[string]Status
}

func NewRunner(registry *TaskRegistry, logger logrus.FieldLogger, opts ...Option) *Runner {
	logger = logger.WithField("component", "runner")
	r := &Runner{
		// an overrunning verification is skipped, not queued
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		registry: registry,
		logger:   logger,
		status:   make(map[string]Status),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules every registered task and blocks until ctx is done or
// SIGINT/SIGTERM arrives. In-flight tasks are waited for before it returns.
func (r *Runner) Start(ctx context.Context) error {
	for _, name := range r.registry.Names() {
		task, _ := r.registry.Get(name)
		if _, err := r.cron.AddFunc(task.Schedule(), func() { r.executeTask(ctx, task) }); err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
		r.logger.WithFields(logrus.Fields{"task": name, "schedule": task.Schedule()}).Info("Task scheduled")
	}

	r.cron.Start()
	r.logger.WithField("tasks", len(r.registry.Names())).Info("Runner started")

	if r.runOnStart {
		for _, name := range r.registry.Names() {
			task, _ := r.registry.Get(name)
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.executeTask(ctx, task)
			}()
		}
	}

	return r.waitForShutdown(ctx)
}

func (r *Runner) executeTask(ctx context.Context, task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(ctx, task.Timeout())
	defer cancel()

	log := r.logger.WithField("task", task.Name())
	log.Debug("Task starting")

	start := time.Now()
	err := runGuarded(taskCtx, task)
	elapsed := time.Since(start)
	r.record(task.Name(), start, elapsed, err)

	if err != nil {
		log.WithError(err).WithField("duration", elapsed).Warn("Task failed")
		return
	}
	log.WithField("duration", elapsed).Info("Task finished")
}

// runGuarded keeps a panicking task from taking the scheduler down with it.
func runGuarded(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name(), p)
		}
	}()
	return task.Run(ctx)
}

func (r *Runner) record(name string, start time.Time, elapsed time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status[name]
	st.Runs++
	if err != nil {
		st.Failures++
	}
	st.LastRun = start
	st.Duration = elapsed
	st.Err = err
	r.status[name] = st
}

// Status reports the last execution of the named task.
func (r *Runner) Status(name string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.status[name]
	return st, ok
}

// Stop halts the schedule and waits for running tasks. Cron jobs are drained
// before wg.Wait so no executeTask can call wg.Add while it waits.
func (r *Runner) Stop() {
	stopped := r.cron.Stop()
	<-stopped.Done()
	r.wg.Wait()
	r.logger.Info("Runner stopped")
}

func (r *Runner) waitForShutdown(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case sig := <-sigs:
		r.logger.WithField("signal", sig.String()).Info("Shutting down")
		r.Stop()
		return nil
	case <-ctx.Done():
		r.Stop()
		return ctx.Err()
	}
}
