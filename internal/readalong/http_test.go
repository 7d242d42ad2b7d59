package readalong

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/yapvoice/yap/pkg/provider/tts"
	ttsmock "github.com/yapvoice/yap/pkg/provider/tts/mock"
)

func newHTTPTestServer(t *testing.T, mock *ttsmock.Provider) (*httptest.Server, *Player) {
	t.Helper()
	player := NewPlayer(mock, defaultTTSConfig())
	h := NewHandler(player, mock)
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, player
}

func postState(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, State) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var st State
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatalf("decode state: %v", err)
		}
	}
	return resp, st
}

func TestHTTP_StartAndState(t *testing.T) {
	mock := &ttsmock.Provider{Audio: []byte("wav")}
	srv, player := newHTTPTestServer(t, mock)

	resp, st := postState(t, srv, "/api/read-along/start", `{"text":"First.\n\nSecond.","voice":"p225"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(st.Chunks) != 2 {
		t.Errorf("snapshot has %d chunks, want 2", len(st.Chunks))
	}
	if !st.IsPlaying {
		t.Error("snapshot should report playback in progress")
	}

	waitFor(t, func() bool { return !player.Snapshot().IsPlaying })

	resp2, err := http.Get(srv.URL + "/api/read-along/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp2.Body.Close()
	var final State
	json.NewDecoder(resp2.Body).Decode(&final)
	if final.IsPlaying || final.CurrentIndex != -1 {
		t.Errorf("final state = %+v", final)
	}
}

func TestHTTP_StartRejectsInvalid(t *testing.T) {
	srv, _ := newHTTPTestServer(t, &ttsmock.Provider{})

	resp, _ := postState(t, srv, "/api/read-along/start", `{"text":"","voice":"p225"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("empty text: status = %d, want 422", resp.StatusCode)
	}

	resp, _ = postState(t, srv, "/api/read-along/start", `{"text":"Hello.","voice":""}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing voice: status = %d, want 422", resp.StatusCode)
	}

	resp, _ = postState(t, srv, "/api/read-along/start", `not json`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad body: status = %d, want 422", resp.StatusCode)
	}
}

func TestHTTP_StartWhileBusy(t *testing.T) {
	gate := newGateProvider()
	player := NewPlayer(gate, defaultTTSConfig())
	h := NewHandler(player, gate)
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer player.Stop()

	resp, _ := postState(t, srv, "/api/read-along/start", `{"text":"Hello.","voice":"p225"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first start: status = %d", resp.StatusCode)
	}
	waitFor(t, func() bool { return gate.callCount() == 1 })

	resp, _ = postState(t, srv, "/api/read-along/start", `{"text":"Again.","voice":"p225"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("busy start: status = %d, want 409", resp.StatusCode)
	}
}

func TestHTTP_StopAndPauseLifecycle(t *testing.T) {
	gate := newGateProvider()
	player := NewPlayer(gate, defaultTTSConfig())
	h := NewHandler(player, gate)
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, _ := postState(t, srv, "/api/read-along/pause", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("pause while stopped: status = %d, want 409", resp.StatusCode)
	}

	postState(t, srv, "/api/read-along/start", `{"text":"Hello.","voice":"p225"}`)
	waitFor(t, func() bool { return gate.callCount() == 1 })

	resp, st := postState(t, srv, "/api/read-along/pause", "")
	if resp.StatusCode != http.StatusOK || !st.IsPaused {
		t.Errorf("pause: status = %d, state = %+v", resp.StatusCode, st)
	}

	resp, st = postState(t, srv, "/api/read-along/resume", "")
	if resp.StatusCode != http.StatusOK || st.IsPaused {
		t.Errorf("resume: status = %d, state = %+v", resp.StatusCode, st)
	}

	resp, st = postState(t, srv, "/api/read-along/stop", "")
	if resp.StatusCode != http.StatusOK || st.IsPlaying {
		t.Errorf("stop: status = %d, state = %+v", resp.StatusCode, st)
	}
}

func TestHTTP_Voices(t *testing.T) {
	mock := &ttsmock.Provider{
		Voices: []tts.Voice{{ID: "p225", Name: "p225", Engine: "coqui"}},
	}
	srv, _ := newHTTPTestServer(t, mock)

	resp, err := http.Get(srv.URL + "/api/read-along/voices")
	if err != nil {
		t.Fatalf("GET voices: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Voices []tts.Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Voices) != 1 || body.Voices[0].ID != "p225" {
		t.Errorf("voices = %+v", body.Voices)
	}
}

func TestHTTP_VoicesUnavailable(t *testing.T) {
	mock := &ttsmock.Provider{ListVoicesErr: errors.New("connection refused")}
	srv, _ := newHTTPTestServer(t, mock)

	resp, err := http.Get(srv.URL + "/api/read-along/voices")
	if err != nil {
		t.Fatalf("GET voices: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if !strings.Contains(body["error"], "Cannot list voices") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestHTTP_StreamForwardsSnapshots(t *testing.T) {
	mock := &ttsmock.Provider{Audio: []byte("wav")}
	srv, player := newHTTPTestServer(t, mock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/read-along/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// The current state arrives immediately on connect.
	var st State
	if err := wsjson.Read(ctx, conn, &st); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if st.IsPlaying || st.CurrentIndex != -1 {
		t.Errorf("initial snapshot = %+v", st)
	}

	if err := player.Start("Only chunk.", "p225"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Transitions stream in until playback settles.
	var sawStopped bool
	for !sawStopped {
		if err := wsjson.Read(ctx, conn, &st); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		if len(st.Chunks) == 1 && !st.IsPlaying {
			sawStopped = true
		}
	}
}
