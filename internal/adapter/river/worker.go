package river

import (
	"context"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// EventWorker processes lifecycle event jobs from the River queue.
// For now it logs the event; future versions will dispatch to
// notification systems (student and teacher emails, push).
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]

	logger *zap.Logger
}

// NewEventWorker creates a worker that logs processed events.
func NewEventWorker(logger *zap.Logger) *EventWorker {
	return &EventWorker{logger: logger}
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	w.logger.Info("processing lifecycle event",
		zap.String("event", job.Args.Event),
		zap.String("entity_type", job.Args.EntityType),
		zap.String("entity_id", job.Args.EntityID),
		zap.String("status", job.Args.Status),
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}
