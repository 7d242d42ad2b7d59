package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yapvoice/yap/internal/export"
	"github.com/yapvoice/yap/internal/observe"
)

// Recorder adapts the event store to the export orchestrator's
// fire-and-forget collaborator. A recording failure is logged and swallowed;
// it must never influence the export outcome.
type Recorder struct {
	store   Store
	obs     *observe.Metrics
	enabled func() bool
}

// Compile-time interface check.
var _ export.AttemptRecorder = (*Recorder)(nil)

// NewRecorder creates a recorder writing to store. enabled is consulted per
// event so a settings change takes effect immediately; a nil func means
// always enabled. obs may be nil when OTel metrics are not wired.
func NewRecorder(store Store, obs *observe.Metrics, enabled func() bool) *Recorder {
	return &Recorder{store: store, obs: obs, enabled: enabled}
}

// RecordExportAttempt implements [export.AttemptRecorder].
func (r *Recorder) RecordExportAttempt(ctx context.Context, status string, targetKind export.Kind) {
	if r.obs != nil {
		r.obs.ExportAttempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("target_kind", string(targetKind)),
		))
	}

	if r.enabled != nil && !r.enabled() {
		return
	}

	_, err := r.store.Record(ctx, Event{
		EventType:  EventExportAttempt,
		Status:     status,
		TargetKind: string(targetKind),
	})
	if err != nil {
		slog.Warn("failed to record export attempt", "error", err)
	}
}
