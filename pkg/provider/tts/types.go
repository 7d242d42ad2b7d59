package tts

// Voice describes a synthesis voice offered by a TTS engine.
type Voice struct {
	// ID is the engine-specific voice identifier passed to Synthesize.
	ID string `json:"id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`

	// Engine identifies which TTS engine this voice belongs to.
	Engine string `json:"engine"`

	// Metadata holds engine-specific voice attributes (model name, language, etc.).
	Metadata map[string]string `json:"metadata,omitempty"`
}
