package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"murmur/playback"
)

func negotiationHandler(t *testing.T, socketURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/v1/realtime/sessions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		resp := map[string]any{
			"client_secret": map[string]any{"value": "ephemeral-123", "expires_at": 9999999999},
		}
		if socketURL != "" {
			resp["socket_url"] = socketURL
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Model:      "test-model",
		APIKey:     "test-key",
		SampleRate: 16000,
	}
}

func TestNegotiate(t *testing.T) {
	srv := httptest.NewServer(negotiationHandler(t, "wss://stream.example.com/v1/realtime"))
	defer srv.Close()

	creds, err := Negotiate(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if creds.ClientSecret != "ephemeral-123" {
		t.Errorf("secret = %q", creds.ClientSecret)
	}
	if creds.SocketURL != "wss://stream.example.com/v1/realtime" {
		t.Errorf("socket url = %q", creds.SocketURL)
	}
}

func TestNegotiateDerivesSocketURL(t *testing.T) {
	srv := httptest.NewServer(negotiationHandler(t, ""))
	defer srv.Close()

	creds, err := Negotiate(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(creds.SocketURL, "ws://") {
		t.Errorf("socket url = %q, want ws scheme derived from http base", creds.SocketURL)
	}
	if !strings.Contains(creds.SocketURL, "model=test-model") {
		t.Errorf("socket url missing model query: %q", creds.SocketURL)
	}
}

func TestNegotiateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := Negotiate(context.Background(), testConfig(srv.URL))
	if err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v, want mention of status 400", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	srv := httptest.NewServer(negotiationHandler(t, "wss://unused"))
	defer srv.Close()

	lb := NewLoopback()
	buf := playback.NewBuffer()
	s := New(testConfig(srv.URL), lb, buf, nil)

	if s.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", s.State())
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateOpen {
		t.Fatalf("state after connect = %s, want open", s.State())
	}
	if s.Sender() == nil {
		t.Fatal("no sender after connect")
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.State() != StateClosed {
		t.Errorf("state after close = %s, want closed", s.State())
	}
}

func TestSessionConnectTwice(t *testing.T) {
	srv := httptest.NewServer(negotiationHandler(t, "wss://unused"))
	defer srv.Close()

	lb := NewLoopback()
	s := New(testConfig(srv.URL), lb, playback.NewBuffer(), nil)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Connect(context.Background()); err == nil {
		t.Error("second Connect succeeded, want state error")
	}
	s.Close()
}

func TestSessionNegotiationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	lb := NewLoopback()
	s := New(testConfig(srv.URL), lb, playback.NewBuffer(), nil)
	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected negotiation failure")
	}
	if s.State() != StateFailed {
		t.Errorf("state = %s, want failed", s.State())
	}
}

func TestSessionInboundRoutedToBuffer(t *testing.T) {
	srv := httptest.NewServer(negotiationHandler(t, "wss://unused"))
	defer srv.Close()

	lb := NewLoopback()
	buf := playback.NewBuffer()
	var transcript string
	s := New(testConfig(srv.URL), lb, buf, func(text string) { transcript = text })
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	lb.Inject(deltaMsg(make([]float32, 320)))
	lb.Inject([]byte(`{"type":"response.content_part.done","part":{"transcript":"done talking"}}`))
	if n := lb.Pump(); n != 2 {
		t.Fatalf("Pump delivered %d, want 2", n)
	}

	if buf.Len() != 320 {
		t.Errorf("buffer length = %d, want 320", buf.Len())
	}
	if transcript != "done talking" {
		t.Errorf("transcript = %q", transcript)
	}
}
