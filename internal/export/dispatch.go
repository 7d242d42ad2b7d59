package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DispatchStatus is the outcome class of a single delivery attempt.
type DispatchStatus string

const (
	// StatusSuccess means the target accepted the payload (2xx).
	StatusSuccess DispatchStatus = "success"

	// StatusHTTPError means the target responded with a non-2xx status.
	StatusHTTPError DispatchStatus = "http_error"

	// StatusNetworkError means the attempt produced no HTTP response at all.
	StatusNetworkError DispatchStatus = "network_error"
)

// DispatchResult is the outcome of exactly one delivery attempt. On failure
// the raw status and transport message are retained so the orchestrator can
// run CORS classification on them.
type DispatchResult struct {
	Status DispatchStatus

	// HTTPStatus is the response status when one was received, nil otherwise.
	HTTPStatus *int

	// BodySnippet is a short excerpt of the response body, kept for
	// user-facing failure reasons.
	BodySnippet string

	// ErrMessage is the transport error text for network failures.
	ErrMessage string
}

// Route selects which delivery path an attempt uses.
type Route int

const (
	// RouteDirect delivers straight from the application to the target.
	RouteDirect Route = iota

	// RouteRelay delivers through the trusted relay that holds secrets.
	RouteRelay
)

// Dispatcher performs exactly one delivery attempt per call. Retry and relay
// fallback are the caller's responsibility.
type Dispatcher interface {
	Send(ctx context.Context, payload *Payload, resolvedPath string, profile *Profile, route Route) DispatchResult
}

// snippetLimit bounds the response body excerpt kept in results.
const snippetLimit = 200

// defaultAttemptTimeout bounds a single delivery attempt.
const defaultAttemptTimeout = 30 * time.Second

// HTTPDispatcher is the stock [Dispatcher], speaking plain HTTP to webhooks,
// the GitLab API, and the exporter relays.
type HTTPDispatcher struct {
	client       *http.Client
	relayBaseURL string
	timeout      time.Duration
}

// Compile-time interface check.
var _ Dispatcher = (*HTTPDispatcher)(nil)

// DispatcherOption configures an [HTTPDispatcher].
type DispatcherOption func(*HTTPDispatcher)

// WithHTTPClient overrides the HTTP client, e.g. for tests.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *HTTPDispatcher) { d.client = c }
}

// WithAttemptTimeout overrides the per-attempt timeout. Expiry surfaces as a
// network error like any other transport failure.
func WithAttemptTimeout(t time.Duration) DispatcherOption {
	return func(d *HTTPDispatcher) { d.timeout = t }
}

// NewHTTPDispatcher creates a dispatcher. relayBaseURL is the base URL of the
// legacy exporter relay serving the gitlab/github/sftp routes; it may be empty
// when no legacy profiles exist.
func NewHTTPDispatcher(relayBaseURL string, opts ...DispatcherOption) *HTTPDispatcher {
	d := &HTTPDispatcher{
		client:       &http.Client{},
		relayBaseURL: relayBaseURL,
		timeout:      defaultAttemptTimeout,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Send implements [Dispatcher]. The profile must already have passed
// [Profile.Validate].
func (d *HTTPDispatcher) Send(ctx context.Context, payload *Payload, resolvedPath string, profile *Profile, route Route) DispatchResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch {
	case profile.Kind == KindWebhook:
		return d.sendWebhook(ctx, payload, profile)
	case profile.Kind == KindGitLabCommit && route == RouteDirect && profile.Mode == GitLabDirect:
		return d.sendGitLabDirect(ctx, payload, resolvedPath, profile)
	case profile.Kind == KindGitLabCommit:
		return d.sendGitLabRelay(ctx, payload, resolvedPath, profile)
	case profile.Kind.IsLegacy():
		return d.sendLegacy(ctx, payload, profile)
	}
	return DispatchResult{
		Status:     StatusNetworkError,
		ErrMessage: fmt.Sprintf("no transport for profile kind %q", profile.Kind),
	}
}

// sendWebhook issues the profile's method to its URL with the JSON payload.
// User headers are merged over the default Content-Type.
func (d *HTTPDispatcher) sendWebhook(ctx context.Context, payload *Payload, profile *Profile) DispatchResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: "encode payload: " + err.Error()}
	}

	headers, err := profile.ParsedHeaders()
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, profile.Method, profile.URL, bytes.NewReader(body))
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return d.do(req)
}

// gitlabFileRequest is the GitLab repository files API body.
type gitlabFileRequest struct {
	Branch        string `json:"branch"`
	Content       string `json:"content"`
	CommitMessage string `json:"commit_message"`
}

// sendGitLabDirect writes the file through the GitLab repository files API.
// It tries create first and falls through to update when the file already
// exists, so re-exporting to the same resolved path overwrites instead of
// duplicating.
func (d *HTTPDispatcher) sendGitLabDirect(ctx context.Context, payload *Payload, resolvedPath string, profile *Profile) DispatchResult {
	content, err := fileContent(payload, profile.FileFormat)
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: err.Error()}
	}

	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/repository/files/%s",
		profile.GitLabURL,
		url.PathEscape(profile.ProjectID),
		url.PathEscape(resolvedPath),
	)
	body, err := json.Marshal(gitlabFileRequest{
		Branch:        profile.Branch,
		Content:       content,
		CommitMessage: "yap export " + payload.CreatedAt,
	})
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: "encode commit: " + err.Error()}
	}

	res := d.gitlabFileCall(ctx, http.MethodPost, endpoint, body, profile.Token)
	if res.Status == StatusHTTPError && res.HTTPStatus != nil && *res.HTTPStatus == http.StatusBadRequest {
		// File already exists at that path; update instead.
		return d.gitlabFileCall(ctx, http.MethodPut, endpoint, body, profile.Token)
	}
	return res
}

func (d *HTTPDispatcher) gitlabFileCall(ctx context.Context, method, endpoint string, body []byte, token string) DispatchResult {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return d.do(req)
}

// relayCommitRequest is the body posted to the gitlab_commit relay. The relay
// holds the token and performs the authenticated write itself.
type relayCommitRequest struct {
	ProjectID  string     `json:"projectId"`
	Branch     string     `json:"branch"`
	FilePath   string     `json:"filePath"`
	FileFormat FileFormat `json:"fileFormat"`
	Payload    *Payload   `json:"payload"`
}

func (d *HTTPDispatcher) sendGitLabRelay(ctx context.Context, payload *Payload, resolvedPath string, profile *Profile) DispatchResult {
	format := profile.FileFormat
	if format == "" {
		format = FormatJSON
	}
	body, err := json.Marshal(relayCommitRequest{
		ProjectID:  profile.ProjectID,
		Branch:     profile.Branch,
		FilePath:   resolvedPath,
		FileFormat: format,
		Payload:    payload,
	})
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: "encode relay request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req)
}

// sendLegacy forwards the opaque profile configuration plus the payload to
// the legacy exporter relay's per-kind route.
func (d *HTTPDispatcher) sendLegacy(ctx context.Context, payload *Payload, profile *Profile) DispatchResult {
	doc := make(map[string]any, len(profile.Extra)+4)
	for k, v := range profile.Extra {
		doc[k] = v
	}
	doc["id"] = profile.ID
	doc["name"] = profile.Name
	doc["kind"] = profile.Kind
	doc["payload"] = payload

	body, err := json.Marshal(doc)
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: "encode legacy request: " + err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.relayBaseURL+"/"+string(profile.Kind), bytes.NewReader(body))
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req)
}

// do executes one HTTP request and maps the outcome onto [DispatchResult].
func (d *HTTPDispatcher) do(req *http.Request) DispatchResult {
	resp, err := d.client.Do(req)
	if err != nil {
		return DispatchResult{Status: StatusNetworkError, ErrMessage: err.Error()}
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, snippetLimit))
	status := resp.StatusCode

	res := DispatchResult{
		HTTPStatus:  &status,
		BodySnippet: string(snippet),
	}
	if status >= 200 && status < 300 {
		res.Status = StatusSuccess
	} else {
		res.Status = StatusHTTPError
	}
	return res
}

// fileContent renders the payload as committed file content per format.
func fileContent(payload *Payload, format FileFormat) (string, error) {
	switch format {
	case FormatText:
		return payload.Transcript, nil
	case FormatJSON, "":
		pretty, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode payload: %w", err)
		}
		return string(pretty), nil
	}
	return "", fmt.Errorf("unknown file format %q", format)
}
