package export

import (
	"fmt"
	"strings"
)

// ValidationError reports a profile or payload that is malformed before any
// network attempt is made. Missing lists the fields that failed the shape
// rules for the profile's kind.
type ValidationError struct {
	// Kind is the profile kind (or payload mode) the rules were applied to.
	Kind string

	// Missing lists the offending fields. A field may appear with a short
	// qualifier, e.g. "token (must be absent in webhook mode)".
	Missing []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("export: invalid %s configuration", e.Kind)
	}
	return fmt.Sprintf("export: invalid %s configuration: %s", e.Kind, strings.Join(e.Missing, ", "))
}

// HTTPError reports a target that responded with a non-2xx status. It is never
// retried via relay; the target received the request and rejected it.
type HTTPError struct {
	// StatusCode is the HTTP status returned by the target.
	StatusCode int

	// BodySnippet is a short excerpt of the response body for diagnostics.
	BodySnippet string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.BodySnippet == "" {
		return fmt.Sprintf("export: target rejected request: %d", e.StatusCode)
	}
	return fmt.Sprintf("export: target rejected request: %d: %s", e.StatusCode, e.BodySnippet)
}

// NetworkError reports a transport-level failure: the request never produced an
// HTTP response. This includes timeouts and CORS-blocked attempts, which the
// runtime surfaces as opaque network failures.
type NetworkError struct {
	// Message is the transport error text, retained verbatim for CORS
	// classification.
	Message string
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return "export: network failure: " + e.Message
}
