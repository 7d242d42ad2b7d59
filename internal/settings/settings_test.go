package settings

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	t.Parallel()
	d := Defaults()

	if d.ASR.AutoTranscribe || d.ASR.AutoCopy {
		t.Error("auto actions must default off")
	}
	if !d.ASR.ConfirmClear || !d.ASR.ConfirmDelete {
		t.Error("destructive confirmations must default on")
	}
	if d.Formatting.ShowSeparators {
		t.Error("showSeparators must default off")
	}
	if !d.Formatting.CollapseBlankLines || !d.Formatting.TrimWhitespace {
		t.Error("text cleanup must default on")
	}
	if d.Formatting.ClipJoiner != JoinBlankLine {
		t.Errorf("clipJoiner = %q, want blank_line", d.Formatting.ClipJoiner)
	}
	if d.TTS.ChunkMode != ChunkParagraph {
		t.Errorf("chunkMode = %q, want paragraph", d.TTS.ChunkMode)
	}
	if d.TTS.MaxChunks != 30 || d.TTS.MaxCharsPerChunk != 1200 {
		t.Errorf("chunk limits = %d/%d, want 30/1200", d.TTS.MaxChunks, d.TTS.MaxCharsPerChunk)
	}
	if !d.Metrics.Enabled || d.Metrics.StoreText {
		t.Error("metrics must default enabled without text storage")
	}
	if d.Metrics.RetentionDays != 30 || d.Metrics.MaxEvents != 5000 {
		t.Errorf("metrics retention = %d/%d, want 30/5000", d.Metrics.RetentionDays, d.Metrics.MaxEvents)
	}

	if err := d.Validate(); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("empty document keeps defaults", func(t *testing.T) {
		t.Parallel()
		s, err := Merge(nil)
		if err != nil {
			t.Fatalf("Merge(nil): %v", err)
		}
		if s != Defaults() {
			t.Errorf("Merge(nil) = %+v, want defaults", s)
		}
	})

	t.Run("saved keys win", func(t *testing.T) {
		t.Parallel()
		s, err := Merge([]byte(`{"asr":{"autoTranscribe":true},"tts":{"maxChunks":10}}`))
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if !s.ASR.AutoTranscribe {
			t.Error("saved autoTranscribe=true was not applied")
		}
		if s.TTS.MaxChunks != 10 {
			t.Errorf("maxChunks = %d, want 10", s.TTS.MaxChunks)
		}
		// Omitted keys keep defaults.
		if !s.ASR.ConfirmClear {
			t.Error("omitted confirmClear lost its default")
		}
		if s.TTS.MaxCharsPerChunk != 1200 {
			t.Errorf("omitted maxCharsPerChunk = %d, want 1200", s.TTS.MaxCharsPerChunk)
		}
	})

	t.Run("unknown keys ignored", func(t *testing.T) {
		t.Parallel()
		s, err := Merge([]byte(`{"futureSection":{"x":1},"asr":{"autoCopy":true}}`))
		if err != nil {
			t.Fatalf("Merge: %v", err)
		}
		if !s.ASR.AutoCopy {
			t.Error("autoCopy=true was not applied")
		}
	})

	t.Run("malformed document", func(t *testing.T) {
		t.Parallel()
		if _, err := Merge([]byte(`{not json`)); err == nil {
			t.Error("Merge accepted malformed JSON")
		}
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"bad clip joiner", func(s *Settings) { s.Formatting.ClipJoiner = "tabs" }, "clipJoiner"},
		{"bad chunk mode", func(s *Settings) { s.TTS.ChunkMode = "sentence" }, "chunkMode"},
		{"zero max chunks", func(s *Settings) { s.TTS.MaxChunks = 0 }, "maxChunks"},
		{"negative max chars", func(s *Settings) { s.TTS.MaxCharsPerChunk = -1 }, "maxCharsPerChunk"},
		{"zero retention", func(s *Settings) { s.Metrics.RetentionDays = 0 }, "retentionDays"},
		{"zero max events", func(s *Settings) { s.Metrics.MaxEvents = 0 }, "maxEvents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatal("Validate() accepted invalid settings")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "conf", "settings.json")
	store := NewFileStore(path)

	// Missing file yields defaults.
	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}
	if s != Defaults() {
		t.Errorf("Load() = %+v, want defaults", s)
	}

	s.ASR.AutoTranscribe = true
	s.Formatting.ClipJoiner = JoinSingleNewline
	if err := store.Save(s); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after save: %v", err)
	}
	if !got.ASR.AutoTranscribe {
		t.Error("autoTranscribe lost across round trip")
	}
	if got.Formatting.ClipJoiner != JoinSingleNewline {
		t.Errorf("clipJoiner = %q, want single_newline", got.Formatting.ClipJoiner)
	}
}

func TestFileStore_SaveRejectsInvalid(t *testing.T) {
	t.Parallel()
	store := NewFileStore(filepath.Join(t.TempDir(), "settings.json"))

	s := Defaults()
	s.TTS.MaxChunks = -5
	if err := store.Save(s); err == nil {
		t.Error("Save() accepted invalid settings")
	}
}
