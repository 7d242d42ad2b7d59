package readalong

import (
	"strings"
	"testing"

	"github.com/yapvoice/yap/internal/settings"
)

func TestSplit_Paragraphs(t *testing.T) {
	text := "First paragraph here.\nThis is still the first paragraph.\n\n" +
		"Second paragraph starts here.\nMore of the second paragraph.\n\n" +
		"Third paragraph."

	chunks := Split(text, settings.ChunkParagraph)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "First paragraph") {
		t.Errorf("chunk 0 = %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "Second paragraph") {
		t.Errorf("chunk 1 = %q", chunks[1])
	}
	if !strings.HasPrefix(chunks[2], "Third paragraph") {
		t.Errorf("chunk 2 = %q", chunks[2])
	}
}

func TestSplit_LineFallback(t *testing.T) {
	// No blank lines, so paragraph mode falls back to one chunk per line.
	text := "Line one.\nLine two.\nLine three."

	chunks := Split(text, settings.ChunkParagraph)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[1] != "Line two." {
		t.Errorf("chunk 1 = %q", chunks[1])
	}
}

func TestSplit_LineMode(t *testing.T) {
	text := "Line one.\n\nLine two.\nLine three."

	chunks := Split(text, settings.ChunkLine)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
}

func TestSplit_SingleParagraphNotSplit(t *testing.T) {
	chunks := Split("Just one block of text.", settings.ChunkParagraph)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	if chunks := Split("", settings.ChunkParagraph); len(chunks) != 0 {
		t.Errorf("empty text: got %d chunks, want 0", len(chunks))
	}
	if chunks := Split("   \n\n   \n   ", settings.ChunkParagraph); len(chunks) != 0 {
		t.Errorf("whitespace text: got %d chunks, want 0", len(chunks))
	}
}

func TestSplit_WindowsLineEndings(t *testing.T) {
	chunks := Split("First.\r\n\r\nSecond.", settings.ChunkParagraph)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
}

func TestCheckLimits(t *testing.T) {
	if err := CheckLimits([]string{"Short chunk 1", "Short chunk 2"}, 30, 1200); err != nil {
		t.Errorf("valid chunks rejected: %v", err)
	}

	many := make([]string, 50)
	for i := range many {
		many[i] = "c"
	}
	err := CheckLimits(many, 30, 1200)
	if err == nil || !strings.Contains(err.Error(), "Too many chunks (50 > 30)") {
		t.Errorf("count limit: err = %v", err)
	}

	err = CheckLimits([]string{"ok", strings.Repeat("A", 1500)}, 30, 1200)
	if err == nil || !strings.Contains(err.Error(), "Chunk 2 too long (1500 > 1200)") {
		t.Errorf("length limit: err = %v", err)
	}
}

func TestCheckLimits_ZeroDisables(t *testing.T) {
	many := make([]string, 100)
	for i := range many {
		many[i] = strings.Repeat("A", 5000)
	}
	if err := CheckLimits(many, 0, 0); err != nil {
		t.Errorf("zero limits should disable checking, got %v", err)
	}
}
