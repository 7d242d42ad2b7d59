// Package metrics collects local, privacy-first usage events: transcription
// runs, read-along playback, export attempts. Events never leave the machine
// unless the user exports them.
package metrics

import "time"

// Well-known event types. EventType is an open set so newer frontends can
// record types this build does not know about.
const (
	EventTranscription = "transcription"
	EventTTS           = "tts"
	EventExportAttempt = "export_attempt"
	EventChat          = "chat"
)

// Event is a single usage record.
type Event struct {
	ID              string         `json:"id"`
	EventType       string         `json:"event_type"`
	Timestamp       time.Time      `json:"timestamp"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	InputChars      int            `json:"input_chars,omitempty"`
	OutputChars     int            `json:"output_chars,omitempty"`
	Status          string         `json:"status,omitempty"`
	TargetKind      string         `json:"target_kind,omitempty"`
	Text            string         `json:"text,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Range selects the window a summary covers.
type Range string

const (
	RangeToday  Range = "today"
	Range7Days  Range = "7d"
	Range30Days Range = "30d"
	RangeAll    Range = "all"
)

// IsValid reports whether r is a known range.
func (r Range) IsValid() bool {
	switch r {
	case RangeToday, Range7Days, Range30Days, RangeAll:
		return true
	}
	return false
}

// Summary aggregates events over a range.
type Summary struct {
	Range           Range          `json:"range"`
	TotalEvents     int            `json:"total_events"`
	ByType          map[string]int `json:"by_type"`
	ASRSeconds      float64        `json:"asr_seconds"`
	TTSSeconds      float64        `json:"tts_seconds"`
	InputChars      int            `json:"input_chars"`
	OutputChars     int            `json:"output_chars"`
	ExportSuccesses int            `json:"export_successes"`
	ExportFailures  int            `json:"export_failures"`
}

// HistoryOptions narrows a history query. Limit 0 means the default page
// size.
type HistoryOptions struct {
	Limit     int
	Offset    int
	EventType string
}

// ExportDocument is the user-facing dump of all stored events.
type ExportDocument struct {
	ExportedAt time.Time `json:"exported_at"`
	Events     []Event   `json:"events"`
}

// Limits bound how much history the store retains. Pruning happens on
// insert: events older than RetentionDays are dropped, then the oldest
// events beyond MaxEvents.
type Limits struct {
	RetentionDays int
	MaxEvents     int
}
