package usage

import (
	"context"
	"fmt"
	"log/slog"

	"modelmux/internal/metrics"
	"modelmux/internal/tasks"
)

// Recorder writes usage records off the request path. Failures are counted,
// logged by the runner, and never surfaced.
type Recorder struct {
	store  Store
	runner *tasks.Runner
	logger *slog.Logger
}

func NewRecorder(store Store, runner *tasks.Runner, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, runner: runner, logger: logger}
}

// Record schedules the write and returns immediately.
func (r *Recorder) Record(rec *Record) {
	r.runner.Go("usage-log", func(ctx context.Context) error {
		if err := r.store.Insert(ctx, rec); err != nil {
			metrics.SideEffectFailures.WithLabelValues("usage_log").Inc()
			return fmt.Errorf("tenant %s conversation %s: %w", rec.TenantID, rec.ConversationID, err)
		}
		return nil
	})
}
