package services

import (
	"context"

	"github.com/sirupsen/logrus"

	apperrors "chunkabank-bot/internal/errors"
)

// Cadence selects the task list a task runs on
type Cadence int

const (
	// CadenceFast runs on every fast tick
	CadenceFast Cadence = iota
	// CadenceSlow runs on every slow tick
	CadenceSlow
)

func (c Cadence) String() string {
	if c == CadenceFast {
		return "fast"
	}
	return "slow"
}

// Task is a periodic job
type Task func(ctx context.Context) error

// TaskRegistrar accepts periodic tasks
type TaskRegistrar interface {
	Register(cadence Cadence, name string, task Task)
}

type namedTask struct {
	name string
	run  Task
}

// Scheduler runs registered tasks when the event loop ticks
type Scheduler struct {
	tasks  map[Cadence][]namedTask
	halted bool
	logger *logrus.Logger
}

// NewScheduler creates an empty scheduler
func NewScheduler(logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make(map[Cadence][]namedTask),
		logger: logger,
	}
}

// Register adds a task to a cadence list
func (s *Scheduler) Register(cadence Cadence, name string, task Task) {
	s.tasks[cadence] = append(s.tasks[cadence], namedTask{name: name, run: task})
	s.logger.Debugf("Registered %s task %s", cadence, name)
}

// Tick runs the tasks of a cadence in registration order.
// A fatal error halts the scheduler and is returned; other errors are logged.
func (s *Scheduler) Tick(ctx context.Context, cadence Cadence) error {
	if s.halted {
		return nil
	}

	for _, task := range s.tasks[cadence] {
		err := task.run(ctx)
		if err == nil {
			continue
		}

		if apperrors.IsFatal(err) {
			s.halted = true
			s.logger.Errorf("Task %s failed fatally: %v", task.name, err)
			return err
		}

		s.logger.Errorf("Task %s failed: %v", task.name, err)
	}

	return nil
}

// Halted reports whether a fatal error stopped the scheduler
func (s *Scheduler) Halted() bool {
	return s.halted
}
