// Package cleanup models the scheduled maintenance entry point as an external
// trigger: whatever drives the schedule (cron, a ticker, an ops runbook) calls
// OnScheduleTick, and registered tasks run. Tasks are best-effort; one failing
// task never stops the others.
package cleanup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Task is a unit of scheduled maintenance work. Run returns how many items it
// cleaned up.
type Task interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Trigger fans a schedule tick out to registered tasks.
type Trigger struct {
	logger zerolog.Logger
	tasks  []Task
}

func NewTrigger(logger zerolog.Logger) *Trigger {
	return &Trigger{logger: logger}
}

// Register adds a task. Not safe for concurrent use with OnScheduleTick;
// register everything during startup.
func (t *Trigger) Register(task Task) {
	t.tasks = append(t.tasks, task)
}

// OnScheduleTick runs every registered task once.
func (t *Trigger) OnScheduleTick(ctx context.Context) {
	for _, task := range t.tasks {
		n, err := task.Run(ctx)
		if err != nil {
			t.logger.Warn().Err(err).Str("task", task.Name()).Msg("cleanup task failed")
			continue
		}
		t.logger.Info().Str("task", task.Name()).Int("cleaned", n).Msg("cleanup task finished")
	}
}

// Start drives OnScheduleTick from a ticker until ctx is cancelled.
func (t *Trigger) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.OnScheduleTick(ctx)
		}
	}
}
