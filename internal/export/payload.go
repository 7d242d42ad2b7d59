// Package export implements the YAP export dispatch subsystem: it turns a
// transcript (plus optional audio clip references) into a canonical JSON
// payload, expands destination path templates, validates user-configured
// export profiles, delivers the payload to the configured target, and falls
// back to a trusted relay when a direct browser-side attempt is blocked by
// CORS.
//
// The flow for a single export action is owned by [Orchestrator]: build the
// payload, resolve the file path if the profile needs one, validate the
// profile, attempt direct delivery via [Dispatcher], classify a transport
// failure with [CORSDetector], and retry once via relay when the profile has
// one. Payloads and resolved paths are ephemeral; profiles persist in
// profilestore.
package export

import (
	"encoding/json"
	"fmt"
	"time"
)

// PayloadSource identifies payloads produced by this application.
const PayloadSource = "yap"

// PayloadMode selects which of the two canonical payload shapes is sent.
type PayloadMode string

const (
	// ModeTranscriptOnly sends only the transcript text.
	ModeTranscriptOnly PayloadMode = "transcript_only"

	// ModeFullSession sends the transcript plus per-clip records and
	// application metadata.
	ModeFullSession PayloadMode = "full_session"
)

// IsValid reports whether m is a recognised payload mode.
func (m PayloadMode) IsValid() bool {
	return m == ModeTranscriptOnly || m == ModeFullSession
}

// Clip is a captured audio clip reference supplied by the caller.
type Clip struct {
	// ID identifies the clip within the session.
	ID string

	// DurationMS is the clip length in milliseconds. Must be >= 0.
	DurationMS int64

	// Text is the clip's transcript fragment. May be empty.
	Text string
}

// PayloadClip is the wire form of a clip inside a full-session payload.
type PayloadClip struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	DurationMS int64  `json:"duration_ms"`
	Text       string `json:"text"`
}

// PayloadMeta carries application metadata inside a full-session payload.
type PayloadMeta struct {
	AppVersion string `json:"app_version"`
}

// Payload is the wire body sent to an export target.
//
// Clips and Meta are present if and only if the payload was built in
// full-session mode; a session with zero clips serialises as "clips": [],
// never as an omitted key.
type Payload struct {
	Source     string
	CreatedAt  string
	Transcript string
	Clips      []PayloadClip
	Meta       *PayloadMeta

	// fullSession records the build mode so MarshalJSON emits the clips key
	// (possibly as an empty array) only for full-session payloads.
	fullSession bool
}

// FullSession reports whether p was built in full-session mode.
func (p *Payload) FullSession() bool { return p.fullSession }

// MarshalJSON emits one of the two canonical wire shapes. Transcript-only
// payloads never carry a clips key; full-session payloads always do, even
// with zero clips.
func (p *Payload) MarshalJSON() ([]byte, error) {
	if !p.fullSession {
		return json.Marshal(struct {
			Source     string `json:"source"`
			CreatedAt  string `json:"created_at"`
			Transcript string `json:"transcript"`
		}{p.Source, p.CreatedAt, p.Transcript})
	}

	clips := p.Clips
	if clips == nil {
		clips = []PayloadClip{}
	}
	return json.Marshal(struct {
		Source     string        `json:"source"`
		CreatedAt  string        `json:"created_at"`
		Transcript string        `json:"transcript"`
		Clips      []PayloadClip `json:"clips"`
		Meta       *PayloadMeta  `json:"meta"`
	}{p.Source, p.CreatedAt, p.Transcript, clips, p.Meta})
}

// BuildPayload constructs a [Payload] from a transcript and its clips.
//
// In transcript-only mode clips are ignored entirely, even when supplied.
// In full-session mode clips must be non-nil (an empty slice is fine); each
// output clip is stamped with the build instant, not the capture instant, and
// clip ordering mirrors the input. The function is pure: deterministic for a
// fixed now and free of I/O.
//
// It returns a [*ValidationError] when mode is unrecognised, when full-session
// mode is requested with nil clips, or when a clip carries a negative
// duration.
func BuildPayload(transcript string, clips []Clip, mode PayloadMode, now time.Time, appVersion string) (*Payload, error) {
	if !mode.IsValid() {
		return nil, &ValidationError{Kind: string(mode), Missing: []string{"payloadMode"}}
	}

	p := &Payload{
		Source:     PayloadSource,
		CreatedAt:  now.Format(time.RFC3339),
		Transcript: transcript,
	}

	if mode == ModeTranscriptOnly {
		return p, nil
	}

	if clips == nil {
		return nil, &ValidationError{Kind: string(mode), Missing: []string{"clips"}}
	}

	p.fullSession = true
	p.Clips = make([]PayloadClip, 0, len(clips))
	for i, c := range clips {
		if c.DurationMS < 0 {
			return nil, &ValidationError{
				Kind:    string(mode),
				Missing: []string{fmt.Sprintf("clips[%d].duration_ms (negative)", i)},
			}
		}
		p.Clips = append(p.Clips, PayloadClip{
			ID:         c.ID,
			CreatedAt:  p.CreatedAt,
			DurationMS: c.DurationMS,
			Text:       c.Text,
		})
	}
	p.Meta = &PayloadMeta{AppVersion: appVersion}
	return p, nil
}
