// Package settings holds per-user application settings with defaults,
// shallow merge of saved values, and JSON file persistence.
package settings

import (
	"errors"
	"fmt"
)

// ClipJoiner selects how clip texts are joined when copying a session.
type ClipJoiner string

const (
	JoinBlankLine     ClipJoiner = "blank_line"
	JoinSingleNewline ClipJoiner = "single_newline"
)

// IsValid reports whether j is a known joiner.
func (j ClipJoiner) IsValid() bool {
	switch j {
	case JoinBlankLine, JoinSingleNewline:
		return true
	}
	return false
}

// ChunkMode selects how read-along text is split into chunks.
type ChunkMode string

const (
	ChunkParagraph ChunkMode = "paragraph"
	ChunkLine      ChunkMode = "line"
)

// IsValid reports whether m is a known chunk mode.
func (m ChunkMode) IsValid() bool {
	switch m {
	case ChunkParagraph, ChunkLine:
		return true
	}
	return false
}

// ASRSettings control transcription behaviour and confirmation prompts.
type ASRSettings struct {
	AutoTranscribe bool `json:"autoTranscribe"`
	AutoCopy       bool `json:"autoCopy"`
	ConfirmClear   bool `json:"confirmClear"`
	ConfirmDelete  bool `json:"confirmDelete"`
}

// FormattingSettings control how session text is rendered and joined.
type FormattingSettings struct {
	ShowSeparators     bool       `json:"showSeparators"`
	CollapseBlankLines bool       `json:"collapseBlankLines"`
	TrimWhitespace     bool       `json:"trimWhitespace"`
	ClipJoiner         ClipJoiner `json:"clipJoiner"`
}

// TTSSettings control read-along playback and chunking.
type TTSSettings struct {
	MarkdownPreview  bool      `json:"markdownPreview"`
	ChunkMode        ChunkMode `json:"chunkMode"`
	MaxChunks        int       `json:"maxChunks"`
	MaxCharsPerChunk int       `json:"maxCharsPerChunk"`
}

// MetricsSettings control local usage metrics collection.
type MetricsSettings struct {
	Enabled       bool `json:"enabled"`
	StoreText     bool `json:"storeText"`
	RetentionDays int  `json:"retentionDays"`
	MaxEvents     int  `json:"maxEvents"`
}

// Settings is the full user settings document.
type Settings struct {
	ASR        ASRSettings        `json:"asr"`
	Formatting FormattingSettings `json:"formatting"`
	TTS        TTSSettings        `json:"tts"`
	Metrics    MetricsSettings    `json:"metrics"`
}

// Defaults returns the settings a fresh installation starts with.
func Defaults() Settings {
	return Settings{
		ASR: ASRSettings{
			AutoTranscribe: false,
			AutoCopy:       false,
			ConfirmClear:   true,
			ConfirmDelete:  true,
		},
		Formatting: FormattingSettings{
			ShowSeparators:     false,
			CollapseBlankLines: true,
			TrimWhitespace:     true,
			ClipJoiner:         JoinBlankLine,
		},
		TTS: TTSSettings{
			MarkdownPreview:  false,
			ChunkMode:        ChunkParagraph,
			MaxChunks:        30,
			MaxCharsPerChunk: 1200,
		},
		Metrics: MetricsSettings{
			Enabled:       true,
			StoreText:     false,
			RetentionDays: 30,
			MaxEvents:     5000,
		},
	}
}

// Validate checks enum membership and numeric ranges.
func (s *Settings) Validate() error {
	var errs []error
	if !s.Formatting.ClipJoiner.IsValid() {
		errs = append(errs, fmt.Errorf("formatting.clipJoiner must be %q or %q, got %q",
			JoinBlankLine, JoinSingleNewline, s.Formatting.ClipJoiner))
	}
	if !s.TTS.ChunkMode.IsValid() {
		errs = append(errs, fmt.Errorf("tts.chunkMode must be %q or %q, got %q",
			ChunkParagraph, ChunkLine, s.TTS.ChunkMode))
	}
	if s.TTS.MaxChunks <= 0 {
		errs = append(errs, fmt.Errorf("tts.maxChunks must be positive, got %d", s.TTS.MaxChunks))
	}
	if s.TTS.MaxCharsPerChunk <= 0 {
		errs = append(errs, fmt.Errorf("tts.maxCharsPerChunk must be positive, got %d", s.TTS.MaxCharsPerChunk))
	}
	if s.Metrics.RetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("metrics.retentionDays must be positive, got %d", s.Metrics.RetentionDays))
	}
	if s.Metrics.MaxEvents <= 0 {
		errs = append(errs, fmt.Errorf("metrics.maxEvents must be positive, got %d", s.Metrics.MaxEvents))
	}
	if len(errs) > 0 {
		return fmt.Errorf("settings: %w", errors.Join(errs...))
	}
	return nil
}
