// Package schedule runs periodic housekeeping jobs on a cron scheduler.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is a periodic sweep. Run returns how many entries it removed.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func() int
}

// Sweeper owns the cron scheduler for a fixed set of tasks.
type Sweeper struct {
	mu      sync.Mutex
	tasks   []Task
	cron    *cron.Cron
	started bool
	logger  *slog.Logger
}

// NewSweeper creates a stopped Sweeper.
func NewSweeper(log *slog.Logger, tasks ...Task) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		tasks:  tasks,
		logger: log.With(slog.String("service", "sweeper")),
	}
}

// Start schedules every task on a fresh scheduler and starts it. Nothing is
// scheduled when a task is invalid.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	for _, task := range s.tasks {
		if task.Run == nil {
			return fmt.Errorf("sweep %q has no run func", task.Name)
		}
		if task.Interval <= 0 {
			return fmt.Errorf("sweep %q has non-positive interval %s", task.Name, task.Interval)
		}
	}

	cl := cronLogger{log: s.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	for _, task := range s.tasks {
		task := task
		if _, err := c.AddFunc("@every "+task.Interval.String(), func() { s.run(task) }); err != nil {
			return fmt.Errorf("schedule sweep %q: %w", task.Name, err)
		}
	}
	c.Start()
	s.cron = c
	s.started = true
	s.logger.Info("sweeper started", slog.Int("tasks", len(s.tasks)))
	return nil
}

// Stop halts the scheduler and waits for running sweeps or ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.started = false
	s.cron = nil
	s.mu.Unlock()

	done := c.Stop()
	select {
	case <-done.Done():
		s.logger.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("sweeper stop timed out"), ctx.Err())
	}
}

// scheduled returns the number of entries on the running scheduler.
func (s *Sweeper) scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// RunOnce runs every task immediately and returns the removed counts by
// task name.
func (s *Sweeper) RunOnce() map[string]int {
	out := make(map[string]int, len(s.tasks))
	for _, task := range s.tasks {
		if task.Run == nil {
			continue
		}
		out[task.Name] = s.run(task)
	}
	return out
}

func (s *Sweeper) run(task Task) int {
	removed := task.Run()
	if removed > 0 {
		s.logger.Debug("sweep removed entries", slog.String("task", task.Name), slog.Int("removed", removed))
	}
	return removed
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
