package anyllm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/yapvoice/yap/pkg/provider/llm"
)

// ── Constructor ───────────────────────────────────────────────────────────────

// TestNew_EmptyProviderName checks that an empty provider name returns an error.
func TestNew_EmptyProviderName(t *testing.T) {
	_, err := New("", "llama3.2")
	if err == nil {
		t.Fatal("expected error for empty providerName")
	}
}

// TestNew_EmptyModel checks that an empty model name returns an error.
func TestNew_EmptyModel(t *testing.T) {
	_, err := New("ollama", "")
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

// TestNew_UnsupportedProvider checks that an unsupported provider returns an error.
func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy"))
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

// TestNew_OpenAI_WithAPIKey checks that a cloud backend constructs with an API key.
func TestNew_OpenAI_WithAPIKey(t *testing.T) {
	p, err := New("openai", "gpt-4o", anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", p.model)
	}
}

// TestNewOllama checks the Ollama constructor and its base URL defaulting.
func TestNewOllama(t *testing.T) {
	p, err := NewOllama("llama3.2", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ollamaURL != DefaultOllamaURL {
		t.Errorf("ollamaURL = %q, want %q", p.ollamaURL, DefaultOllamaURL)
	}

	p, err = NewOllama("llama3.2", "http://10.0.0.5:11434/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ollamaURL != "http://10.0.0.5:11434" {
		t.Errorf("trailing slash not stripped: %q", p.ollamaURL)
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

func TestBuildParams_SystemPromptPrepended(t *testing.T) {
	p := &Provider{model: "llama3.2"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are a transcription assistant.",
		Messages:     []llm.Message{{Role: "user", Content: "Hello"}},
	})

	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("first message role = %q, want system", params.Messages[0].Role)
	}
	if params.Messages[1].Role != "user" {
		t.Errorf("second message role = %q, want user", params.Messages[1].Role)
	}
}

func TestBuildParams_ModelOverride(t *testing.T) {
	p := &Provider{model: "llama3.2"}

	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	if params.Model != "llama3.2" {
		t.Errorf("default model = %q, want llama3.2", params.Model)
	}

	params = p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
		Model:    "mistral",
	})
	if params.Model != "mistral" {
		t.Errorf("overridden model = %q, want mistral", params.Model)
	}
}

func TestBuildParams_TemperatureAndMaxTokens(t *testing.T) {
	p := &Provider{model: "llama3.2"}

	params := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: "Hi"}},
		Temperature: 0.7,
		MaxTokens:   256,
	})
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("temperature not forwarded: %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 256 {
		t.Errorf("max tokens not forwarded: %v", params.MaxTokens)
	}

	params = p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	if params.Temperature != nil {
		t.Error("zero temperature should leave the parameter unset")
	}
	if params.MaxTokens != nil {
		t.Error("zero max tokens should leave the parameter unset")
	}
}

// ── ListModels ────────────────────────────────────────────────────────────────

func TestListModels_FromTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[
			{"name":"llama3.2:latest","size":2019393189,"modified_at":"2025-06-01T12:00:00Z"},
			{"name":"mistral:latest","size":4113301824,"modified_at":"2025-05-20T08:30:00Z"}
		]}`))
	}))
	defer srv.Close()

	p, err := NewOllama("llama3.2", srv.URL)
	if err != nil {
		t.Fatalf("NewOllama: %v", err)
	}

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].Name != "llama3.2:latest" {
		t.Errorf("first model = %q", models[0].Name)
	}
	if models[1].Size != 4113301824 {
		t.Errorf("second model size = %d", models[1].Size)
	}
}

func TestListModels_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewOllama("llama3.2", srv.URL)
	if err != nil {
		t.Fatalf("NewOllama: %v", err)
	}
	if _, err := p.ListModels(context.Background()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestListModels_NonOllamaBackend(t *testing.T) {
	p, err := New("openai", "gpt-4o", anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.ListModels(context.Background()); err == nil {
		t.Fatal("expected error when listing models on a non-ollama backend")
	}
}
