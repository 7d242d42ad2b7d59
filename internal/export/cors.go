package export

import "strings"

// corsErrorMarker is the error text browser runtimes emit for a fetch that a
// cross-origin policy rejected. Together with a reported status of 0 it is
// the only observable symptom of a CORS-blocked request.
const corsErrorMarker = "Failed to fetch"

// CORSDetector classifies a failed delivery attempt as CORS-blocked or as a
// genuine transport/application error. It is only meaningful for direct-mode
// attempts; relay attempts are same-origin or server-side and are never
// classified.
//
// Browser fetch APIs deliberately obscure CORS failures as opaque network
// errors, so any implementation is a heuristic. Keeping it behind this
// interface lets the orchestration logic stay untouched when the heuristic
// has to change.
type CORSDetector interface {
	// Blocked reports whether the attempt looks CORS-blocked. status is the
	// reported HTTP status, nil when the attempt produced none; errMsg is the
	// transport error text, empty when there was none.
	Blocked(status *int, errMsg string) bool
}

// HeuristicDetector is the stock [CORSDetector]. The rule is exact and
// ordered: a reported status of 0 is CORS-blocked; otherwise a transport
// error containing "Failed to fetch" is CORS-blocked; everything else is not.
type HeuristicDetector struct{}

// Compile-time interface check.
var _ CORSDetector = HeuristicDetector{}

// Blocked implements [CORSDetector].
func (HeuristicDetector) Blocked(status *int, errMsg string) bool {
	if status != nil && *status == 0 {
		return true
	}
	if errMsg != "" && strings.Contains(errMsg, corsErrorMarker) {
		return true
	}
	return false
}
