package export

import (
	"encoding/json"
	"strings"
)

// Kind is the closed set of export target kinds.
type Kind string

const (
	// KindWebhook delivers the payload to an arbitrary user-specified URL.
	KindWebhook Kind = "webhook"

	// KindGitLabCommit commits the payload as a file to a GitLab repository,
	// either directly or through the trusted relay.
	KindGitLabCommit Kind = "gitlab_commit"

	// Legacy kinds are forwarded verbatim to the pre-existing exporter relay.
	KindGitLab Kind = "gitlab"
	KindGitHub Kind = "github"
	KindSFTP   Kind = "sftp"
)

// IsValid reports whether k is a recognised target kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindWebhook, KindGitLabCommit, KindGitLab, KindGitHub, KindSFTP:
		return true
	}
	return false
}

// IsLegacy reports whether k is handled by the legacy exporter relay.
func (k Kind) IsLegacy() bool {
	return k == KindGitLab || k == KindGitHub || k == KindSFTP
}

// GitLabMode selects how a gitlab_commit profile reaches GitLab.
type GitLabMode string

const (
	// GitLabDirect calls the GitLab API straight from the application, using
	// a token stored on the profile.
	GitLabDirect GitLabMode = "direct"

	// GitLabWebhook posts to a trusted relay which holds the token and
	// performs the authenticated write server-side.
	GitLabWebhook GitLabMode = "webhook"
)

// IsValid reports whether m is a recognised gitlab_commit mode.
func (m GitLabMode) IsValid() bool {
	return m == GitLabDirect || m == GitLabWebhook
}

// FileFormat selects how the payload becomes file content in a GitLab commit.
type FileFormat string

const (
	// FormatJSON writes the pretty-printed payload.
	FormatJSON FileFormat = "json"

	// FormatText writes only the transcript text.
	FormatText FileFormat = "text"
)

// IsValid reports whether f is a recognised file format.
func (f FileFormat) IsValid() bool {
	return f == FormatJSON || f == FormatText
}

// Profile is a user-configured export destination. Exactly one of URL,
// WebhookURL, or GitLabURL+Token is populated depending on Kind and Mode; the
// shape rules are enforced by [Profile.Validate] before any network attempt.
type Profile struct {
	// ID uniquely and stably identifies the profile.
	ID string `json:"id"`

	// Name is the user-facing display name.
	Name string `json:"name"`

	// Kind selects the target type.
	Kind Kind `json:"kind"`

	// PayloadMode selects the wire shape built for this profile.
	PayloadMode PayloadMode `json:"payloadMode"`

	// --- webhook kind ---

	// URL is the destination for webhook profiles. Must be http(s).
	URL string `json:"url,omitempty"`

	// Method is POST or PUT for webhook profiles.
	Method string `json:"method,omitempty"`

	// Headers is an optional JSON object of extra request headers, stored as
	// text the way the profile editor collected it.
	Headers string `json:"headers,omitempty"`

	// --- gitlab_commit kind ---

	// Mode selects direct or relay delivery for gitlab_commit profiles.
	Mode GitLabMode `json:"mode,omitempty"`

	// GitLabURL is the GitLab instance base URL (direct mode).
	GitLabURL string `json:"gitlabUrl,omitempty"`

	// ProjectID addresses the target project, e.g. "group/repo" or a numeric id.
	ProjectID string `json:"projectId,omitempty"`

	// Branch is the target branch.
	Branch string `json:"branch,omitempty"`

	// FilePath is the destination path template (see [ResolvePath]).
	FilePath string `json:"filePath,omitempty"`

	// FileFormat selects the committed file content.
	FileFormat FileFormat `json:"fileFormat,omitempty"`

	// Token authenticates direct GitLab calls. It must be absent in webhook
	// mode, where the relay holds the secret.
	Token string `json:"token,omitempty"`

	// WebhookURL is the relay endpoint for gitlab_commit webhook mode. When
	// set on a direct-mode profile it also enables the CORS relay fallback.
	WebhookURL string `json:"webhookUrl,omitempty"`

	// Extra carries opaque configuration for legacy kinds, forwarded to the
	// legacy exporter relay without interpretation.
	Extra map[string]any `json:"extra,omitempty"`
}

// Validate checks the profile's shape against its kind's rules. It runs purely
// on field presence, before any network code executes, and returns a
// [*ValidationError] listing every offending field.
func (p *Profile) Validate() error {
	var missing []string

	if p.ID == "" {
		missing = append(missing, "id")
	}
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if !p.Kind.IsValid() {
		return &ValidationError{Kind: string(p.Kind), Missing: append(missing, "kind")}
	}
	if p.PayloadMode != "" && !p.PayloadMode.IsValid() {
		missing = append(missing, "payloadMode")
	}

	switch p.Kind {
	case KindWebhook:
		if !isHTTPURL(p.URL) {
			missing = append(missing, "url")
		}
		if p.Method != "POST" && p.Method != "PUT" {
			missing = append(missing, "method")
		}
		if p.Headers != "" && !isJSONObject(p.Headers) {
			missing = append(missing, "headers (not a JSON object)")
		}

	case KindGitLabCommit:
		if !p.Mode.IsValid() {
			missing = append(missing, "mode")
			break
		}
		if p.ProjectID == "" {
			missing = append(missing, "projectId")
		}
		if p.Branch == "" {
			missing = append(missing, "branch")
		}
		if p.FilePath == "" {
			missing = append(missing, "filePath")
		}
		if p.Mode == GitLabDirect {
			if p.GitLabURL == "" {
				missing = append(missing, "gitlabUrl")
			}
			if !p.FileFormat.IsValid() {
				missing = append(missing, "fileFormat")
			}
			if p.Token == "" {
				missing = append(missing, "token")
			}
		} else {
			if p.WebhookURL == "" {
				missing = append(missing, "webhookUrl")
			}
			// The UI must never have collected a secret for relay delivery.
			if p.Token != "" {
				missing = append(missing, "token (must be absent in webhook mode)")
			}
		}
	}

	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Kind: string(p.Kind), Missing: missing}
}

// ParsedHeaders decodes the Headers JSON text into a header map.
// Returns nil for empty Headers.
func (p *Profile) ParsedHeaders() (map[string]string, error) {
	if p.Headers == "" {
		return nil, nil
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(p.Headers), &raw); err != nil {
		return nil, &ValidationError{Kind: string(p.Kind), Missing: []string{"headers (not a JSON object)"}}
	}
	return raw, nil
}

// HasRelayFallback reports whether a CORS-blocked direct attempt for this
// profile may be retried through a relay. Only direct-mode gitlab_commit
// profiles that also carry a relay webhookUrl qualify; plain webhook profiles
// have no fallback path.
func (p *Profile) HasRelayFallback() bool {
	return p.Kind == KindGitLabCommit && p.Mode == GitLabDirect && p.WebhookURL != ""
}

// NeedsFilePath reports whether exports through this profile resolve a
// destination path template before dispatch.
func (p *Profile) NeedsFilePath() bool {
	return p.Kind == KindGitLabCommit
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// isJSONObject reports whether s parses as a JSON object with string values,
// the same decode [Profile.ParsedHeaders] applies at dispatch time.
func isJSONObject(s string) bool {
	var v map[string]string
	return json.Unmarshal([]byte(s), &v) == nil
}
