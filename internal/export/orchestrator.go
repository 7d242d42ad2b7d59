package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// AttemptRecorder receives one usage event per settled export. Recording is
// fire-and-forget: implementations must never fail the export outcome.
type AttemptRecorder interface {
	RecordExportAttempt(ctx context.Context, status string, targetKind Kind)
}

// Request carries one export action: the profile to deliver through and the
// captured content to deliver.
type Request struct {
	Profile    *Profile
	Transcript string
	Clips      []Clip
}

// Outcome is the settled result of an export action. Success and failure are
// both terminal; a new user action starts a fresh export.
type Outcome struct {
	// Success reports whether a target accepted the payload.
	Success bool

	// Relayed reports whether the relay fallback attempt was made.
	Relayed bool

	// ResolvedPath is the expanded destination path, empty for profiles
	// without one.
	ResolvedPath string

	// Reason is a human-readable description of the outcome, suitable for
	// surfacing to the user.
	Reason string

	// Err classifies the failure (*ValidationError, *HTTPError,
	// *NetworkError, or a context error). Nil on success.
	Err error
}

// Orchestrator runs the export state machine: build the payload, resolve the
// path, validate the profile, attempt direct delivery, classify a transport
// failure, and retry once via relay when the attempt was CORS-blocked and the
// profile has a relay configured.
//
// Each call to Export is an independent instance; the orchestrator holds no
// per-export state and is safe for concurrent use.
type Orchestrator struct {
	dispatcher Dispatcher
	detector   CORSDetector
	recorder   AttemptRecorder
	appVersion string
	now        func() time.Time
}

// OrchestratorOption configures an [Orchestrator].
type OrchestratorOption func(*Orchestrator)

// WithRecorder sets the usage event recorder. Without one, settled exports
// are not recorded.
func WithRecorder(r AttemptRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithAppVersion sets the version stamped into full-session payload metadata.
func WithAppVersion(v string) OrchestratorOption {
	return func(o *Orchestrator) { o.appVersion = v }
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an orchestrator using the given dispatcher and
// CORS detector.
func NewOrchestrator(d Dispatcher, det CORSDetector, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		dispatcher: d,
		detector:   det,
		appVersion: "dev",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Export runs one export action to a settled outcome. Validation failures
// settle immediately without any network attempt. A direct attempt that the
// target rejects with a real HTTP status is never retried; only a
// CORS-classified transport failure triggers the single relay retry, and only
// for profiles that have a relay configured. Cancellation of ctx is honoured
// at both attempt boundaries.
func (o *Orchestrator) Export(ctx context.Context, req Request) Outcome {
	out := o.export(ctx, req)

	status := "failure"
	if out.Success {
		status = "success"
	}
	if o.recorder != nil {
		o.recorder.RecordExportAttempt(ctx, status, req.Profile.Kind)
	}
	slog.Info("export settled",
		"profile_id", req.Profile.ID,
		"target_kind", req.Profile.Kind,
		"status", status,
		"relayed", out.Relayed,
	)
	return out
}

func (o *Orchestrator) export(ctx context.Context, req Request) Outcome {
	profile := req.Profile

	// Building: validate before any network code runs.
	if err := profile.Validate(); err != nil {
		return Outcome{Err: err, Reason: err.Error()}
	}

	mode := profile.PayloadMode
	if mode == "" {
		mode = ModeTranscriptOnly
	}

	instant := o.now()
	payload, err := BuildPayload(req.Transcript, req.Clips, mode, instant, o.appVersion)
	if err != nil {
		return Outcome{Err: err, Reason: err.Error()}
	}

	var resolvedPath string
	if profile.NeedsFilePath() {
		resolvedPath = ResolvePath(profile.FilePath, instant)
	}

	if err := ctx.Err(); err != nil {
		return cancelled(resolvedPath, err)
	}

	// Dispatching(direct).
	direct := o.dispatcher.Send(ctx, payload, resolvedPath, profile, RouteDirect)
	switch direct.Status {
	case StatusSuccess:
		return Outcome{Success: true, ResolvedPath: resolvedPath, Reason: "export delivered"}

	case StatusHTTPError:
		// A real HTTP status is a server rejection, never retried via relay.
		return Outcome{
			ResolvedPath: resolvedPath,
			Err:          &HTTPError{StatusCode: deref(direct.HTTPStatus), BodySnippet: direct.BodySnippet},
			Reason:       rejectionReason(direct),
		}
	}

	if err := ctx.Err(); err != nil {
		return cancelled(resolvedPath, err)
	}

	// Only direct-to-target attempts can be CORS-blocked; relay-mode primary
	// transports are same-origin or server-side.
	classifiable := profile.Kind == KindWebhook ||
		(profile.Kind == KindGitLabCommit && profile.Mode == GitLabDirect)
	if !classifiable || !o.detector.Blocked(direct.HTTPStatus, direct.ErrMessage) {
		return Outcome{
			ResolvedPath: resolvedPath,
			Err:          &NetworkError{Message: direct.ErrMessage},
			Reason:       "cannot reach target: " + direct.ErrMessage,
		}
	}

	if !profile.HasRelayFallback() {
		return Outcome{
			ResolvedPath: resolvedPath,
			Err:          &NetworkError{Message: direct.ErrMessage},
			Reason:       "cannot reach target: blocked by browser security policy, and no relay is configured",
		}
	}

	// Dispatching(relay): at most one retry, and its outcome is terminal even
	// if it is itself CORS-shaped.
	slog.Debug("direct attempt CORS-blocked, retrying via relay", "profile_id", profile.ID)
	relay := o.dispatcher.Send(ctx, payload, resolvedPath, profile, RouteRelay)
	switch relay.Status {
	case StatusSuccess:
		return Outcome{
			Success:      true,
			Relayed:      true,
			ResolvedPath: resolvedPath,
			Reason:       "cannot reach target directly: blocked by browser security policy, delivered via relay",
		}
	case StatusHTTPError:
		return Outcome{
			Relayed:      true,
			ResolvedPath: resolvedPath,
			Err:          &HTTPError{StatusCode: deref(relay.HTTPStatus), BodySnippet: relay.BodySnippet},
			Reason:       "relay " + rejectionReason(relay),
		}
	default:
		if err := ctx.Err(); err != nil {
			return cancelled(resolvedPath, err)
		}
		return Outcome{
			Relayed:      true,
			ResolvedPath: resolvedPath,
			Err:          &NetworkError{Message: relay.ErrMessage},
			Reason:       "cannot reach relay: " + relay.ErrMessage,
		}
	}
}

func cancelled(resolvedPath string, err error) Outcome {
	return Outcome{
		ResolvedPath: resolvedPath,
		Err:          err,
		Reason:       "export cancelled",
	}
}

func rejectionReason(res DispatchResult) string {
	code := deref(res.HTTPStatus)
	text := http.StatusText(code)
	if text == "" {
		text = res.BodySnippet
	}
	return fmt.Sprintf("target rejected request: %d %s", code, text)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
