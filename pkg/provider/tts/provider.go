// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis engine (e.g., a local Coqui TTS
// server) and presents a uniform batch interface: one call per utterance,
// returning a complete encoded audio clip suitable for playback.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
//
// Implementations must be safe for concurrent use; multiple synthesis
// requests may run in parallel.
type Provider interface {
	// Synthesize renders text as audio using the given voice and returns the
	// encoded audio bytes (typically a WAV clip). An empty voiceID requests
	// the engine's default voice where the engine supports one.
	//
	// Returns an error if the engine cannot be reached, rejects the request,
	// or ctx is cancelled before synthesis completes.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)

	// ListVoices returns all voices available from this provider. The list
	// reflects the engine's current catalogue and may change between calls.
	ListVoices(ctx context.Context) ([]Voice, error)
}
