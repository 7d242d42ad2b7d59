package metrics

import (
	"context"
	"errors"
)

// ErrMissingEventType is returned by Record when the event carries no type.
var ErrMissingEventType = errors.New("metrics: event_type is required")

// Store persists usage events. All implementations must be safe for
// concurrent use.
type Store interface {
	// Record appends an event, assigning an ID and timestamp when absent,
	// then prunes history to the configured limits.
	// Returns [ErrMissingEventType] when the event has no type.
	Record(ctx context.Context, ev Event) (Event, error)

	// Summary aggregates events inside the given range.
	Summary(ctx context.Context, r Range) (Summary, error)

	// History returns events newest first.
	History(ctx context.Context, opts HistoryOptions) ([]Event, error)

	// Export dumps all stored events for the user to take elsewhere.
	Export(ctx context.Context) (ExportDocument, error)

	// Clear removes all events, or only their stored text when textOnly is
	// set.
	Clear(ctx context.Context, textOnly bool) error
}
