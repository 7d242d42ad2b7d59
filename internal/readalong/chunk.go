// Package readalong turns a block of text into sequential speech. Text is
// split into chunks, each chunk is synthesised through a TTS provider in
// order, and playback state is pushed to subscribers so the frontend can
// highlight the chunk currently being spoken.
package readalong

import (
	"fmt"
	"strings"

	"github.com/yapvoice/yap/internal/settings"
)

// Split breaks text into read-along chunks. In paragraph mode chunks are
// separated by blank lines; when the text contains no paragraph break it
// falls back to one chunk per line. Line mode always yields one chunk per
// line. Empty or whitespace-only text yields no chunks.
func Split(text string, mode settings.ChunkMode) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	if mode == settings.ChunkLine {
		return splitLines(text)
	}

	chunks := splitParagraphs(text)
	if len(chunks) <= 1 && strings.Contains(strings.TrimSpace(text), "\n") {
		return splitLines(text)
	}
	return chunks
}

func splitParagraphs(text string) []string {
	var chunks []string
	for _, part := range strings.Split(text, "\n\n") {
		if part = strings.TrimSpace(part); part != "" {
			chunks = append(chunks, part)
		}
	}
	return chunks
}

func splitLines(text string) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}

// CheckLimits verifies that chunks fit within the configured bounds. The
// returned error message is shown verbatim in the frontend.
func CheckLimits(chunks []string, maxChunks, maxChars int) error {
	if maxChunks > 0 && len(chunks) > maxChunks {
		return fmt.Errorf("Too many chunks (%d > %d)", len(chunks), maxChunks)
	}
	if maxChars > 0 {
		for i, chunk := range chunks {
			if len(chunk) > maxChars {
				return fmt.Errorf("Chunk %d too long (%d > %d)", i+1, len(chunk), maxChars)
			}
		}
	}
	return nil
}
