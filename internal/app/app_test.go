package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yapvoice/yap/internal/config"
	"github.com/yapvoice/yap/internal/export"
	"github.com/yapvoice/yap/pkg/provider/llm"
	llmmock "github.com/yapvoice/yap/pkg/provider/llm/mock"
	"github.com/yapvoice/yap/pkg/provider/tts"
	ttsmock "github.com/yapvoice/yap/pkg/provider/tts/mock"
)

func newTestApp(t *testing.T, opts ...Option) (*App, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Settings.Path = filepath.Join(t.TempDir(), "settings.json")
	cfg.Metrics.SQLitePath = ":memory:"

	base := []Option{
		WithVersion("test"),
		WithLLMProvider(&llmmock.Provider{}),
		WithTTSProvider(&ttsmock.Provider{Audio: []byte("wav")}),
	}

	a, err := New(context.Background(), cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Shutdown(context.Background()) })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestApp_Healthz(t *testing.T) {
	_, srv := newTestApp(t)

	resp, raw := doJSON(t, "GET", srv.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Version != "test" {
		t.Errorf("body = %+v", body)
	}
}

func TestApp_Readyz(t *testing.T) {
	_, srv := newTestApp(t)

	resp, _ := doJSON(t, "GET", srv.URL+"/readyz", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestApp_ProfileCRUD(t *testing.T) {
	_, srv := newTestApp(t)

	resp, raw := doJSON(t, "POST", srv.URL+"/api/profiles",
		`{"name":"Notes","kind":"webhook","url":"https://example.com/hook","method":"POST"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", resp.StatusCode, raw)
	}
	var created export.Profile
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" {
		t.Fatal("create did not assign an ID")
	}

	resp, raw = doJSON(t, "GET", srv.URL+"/api/profiles/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}

	resp, raw = doJSON(t, "GET", srv.URL+"/api/profiles", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	var listed struct {
		Profiles []export.Profile `json:"profiles"`
	}
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Profiles) != 1 || listed.Profiles[0].Name != "Notes" {
		t.Errorf("profiles = %+v", listed.Profiles)
	}

	resp, _ = doJSON(t, "PUT", srv.URL+"/api/profiles/"+created.ID,
		`{"name":"Notes v2","kind":"webhook","url":"https://example.com/hook","method":"PUT"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "DELETE", srv.URL+"/api/profiles/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", srv.URL+"/api/profiles/"+created.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestApp_ProfileValidationRejected(t *testing.T) {
	_, srv := newTestApp(t)

	resp, raw := doJSON(t, "POST", srv.URL+"/api/profiles",
		`{"name":"Broken","kind":"webhook","url":"ftp://nope","method":"GET"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422; body %s", resp.StatusCode, raw)
	}
}

func TestApp_ExportDeliversToWebhook(t *testing.T) {
	var delivered []byte
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	_, srv := newTestApp(t)

	_, raw := doJSON(t, "POST", srv.URL+"/api/profiles",
		`{"name":"Hook","kind":"webhook","url":"`+target.URL+`","method":"POST"}`)
	var profile export.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}

	resp, raw := doJSON(t, "POST", srv.URL+"/api/export",
		`{"profileId":"`+profile.ID+`","transcript":"Hello world."}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status = %d, body %s", resp.StatusCode, raw)
	}
	var out exportResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if !out.Success || out.Relayed {
		t.Errorf("outcome = %+v", out)
	}
	if !bytes.Contains(delivered, []byte("Hello world.")) {
		t.Errorf("target received %s", delivered)
	}
}

func TestApp_ExportUnknownProfile(t *testing.T) {
	_, srv := newTestApp(t)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/export",
		`{"profileId":"nope","transcript":"Hello."}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestApp_ExportRecordsUsageEvent(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	_, srv := newTestApp(t)

	_, raw := doJSON(t, "POST", srv.URL+"/api/profiles",
		`{"name":"Hook","kind":"webhook","url":"`+target.URL+`","method":"POST"}`)
	var profile export.Profile
	json.Unmarshal(raw, &profile)

	doJSON(t, "POST", srv.URL+"/api/export",
		`{"profileId":"`+profile.ID+`","transcript":"Hello."}`)

	resp, raw := doJSON(t, "GET", srv.URL+"/api/metrics/history", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: status = %d", resp.StatusCode)
	}
	var hist struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(raw, &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Events) == 0 {
		t.Error("settled export did not record a usage event")
	}
}

func TestApp_SettingsRoundTrip(t *testing.T) {
	_, srv := newTestApp(t)

	resp, raw := doJSON(t, "GET", srv.URL+"/api/settings", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d", resp.StatusCode)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["tts"]["maxChunks"].(float64) != 30 {
		t.Errorf("default maxChunks = %v, want 30", doc["tts"]["maxChunks"])
	}

	resp, raw = doJSON(t, "PUT", srv.URL+"/api/settings", `{"tts":{"maxChunks":12}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put: status = %d, body %s", resp.StatusCode, raw)
	}

	_, raw = doJSON(t, "GET", srv.URL+"/api/settings", "")
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc["tts"]["maxChunks"].(float64) != 12 {
		t.Errorf("updated maxChunks = %v, want 12", doc["tts"]["maxChunks"])
	}
	if doc["tts"]["chunkMode"] != "paragraph" {
		t.Errorf("omitted chunkMode = %v, want default kept", doc["tts"]["chunkMode"])
	}
}

func TestApp_SettingsRejectsInvalid(t *testing.T) {
	_, srv := newTestApp(t)

	resp, _ := doJSON(t, "PUT", srv.URL+"/api/settings", `{"tts":{"maxChunks":-1}}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestApp_ChatRouteWired(t *testing.T) {
	provider := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "hi there", Model: "llama3.2"},
	}

	_, srv := newTestApp(t, WithLLMProvider(provider))

	resp, raw := doJSON(t, "POST", srv.URL+"/api/chat", `{"message":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}
	var body struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Response != "hi there" {
		t.Errorf("response = %q", body.Response)
	}
}

func TestApp_ReadAlongVoicesWired(t *testing.T) {
	mock := &ttsmock.Provider{
		Voices: []tts.Voice{{ID: "p225", Name: "p225", Engine: "coqui"}},
	}
	_, srv := newTestApp(t, WithTTSProvider(mock))

	resp, raw := doJSON(t, "GET", srv.URL+"/api/read-along/voices", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Voices []tts.Voice `json:"voices"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Voices) != 1 || body.Voices[0].ID != "p225" {
		t.Errorf("voices = %+v", body.Voices)
	}
}

func TestApp_PrometheusEndpoint(t *testing.T) {
	_, srv := newTestApp(t)

	resp, _ := doJSON(t, "GET", srv.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
