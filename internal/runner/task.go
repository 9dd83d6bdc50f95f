// Package runner schedules recurring verification runs on cron expressions.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Task is a unit of scheduled work.
type Task interface {
	// Name must be unique within a registry.
	Name() string
	// Schedule is a cron expression with a leading seconds field, or a
	// descriptor such as "@every 5m".
	Schedule() string
	Run(ctx context.Context) error
	// Timeout bounds a single Run.
	Timeout() time.Duration
}

// TaskRegistry is the set of tasks a Runner schedules.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]Task)}
}

func (r *TaskRegistry) Register(task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.tasks[task.Name()]; dup {
		return fmt.Errorf("task %s already registered", task.Name())
	}
	r.tasks[task.Name()] = task
	return nil
}

func (r *TaskRegistry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[name]
	return task, ok
}

// All returns a copy of the registered tasks keyed by name.
func (r *TaskRegistry) All() map[string]Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Task, len(r.tasks))
	for name, task := range r.tasks {
		out[name] = task
	}
	return out
}

// Names returns the registered task names, sorted.
func (r *TaskRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
