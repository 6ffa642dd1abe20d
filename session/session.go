package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"murmur/log"
	"murmur/playback"
)

// State is the connection lifecycle of one Session.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Config struct {
	BaseURL      string // service base, e.g. https://api.example.com
	Model        string
	Instructions string
	APIKey       string
	SampleRate   int
}

// Credentials is what negotiation hands back: a short-lived token for the
// socket and the socket URL itself.
type Credentials struct {
	ClientSecret string
	SocketURL    string
}

type negotiateRequest struct {
	Model        string `json:"model"`
	Instructions string `json:"instructions,omitempty"`
}

type negotiateResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
	SocketURL string `json:"socket_url"`
}

// Negotiate asks the service for an ephemeral credential. It is a one-shot
// call: failure surfaces once and is not retried here.
func Negotiate(ctx context.Context, cfg Config) (Credentials, error) {
	body, err := json.Marshal(negotiateRequest{Model: cfg.Model, Instructions: cfg.Instructions})
	if err != nil {
		return Credentials{}, err
	}

	endpoint := strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/realtime/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Credentials{}, err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("session negotiation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Credentials{}, fmt.Errorf("session negotiation: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var nr negotiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return Credentials{}, fmt.Errorf("session negotiation: %w", err)
	}
	if nr.ClientSecret.Value == "" {
		return Credentials{}, errors.New("session negotiation: no client secret in response")
	}

	socketURL := nr.SocketURL
	if socketURL == "" {
		socketURL, err = deriveSocketURL(cfg.BaseURL, cfg.Model)
		if err != nil {
			return Credentials{}, err
		}
	}
	return Credentials{ClientSecret: nr.ClientSecret.Value, SocketURL: socketURL}, nil
}

// deriveSocketURL builds the streaming endpoint from the HTTP base when the
// negotiation response does not name one.
func deriveSocketURL(baseURL, model string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/realtime"
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Session owns exactly one Transport. Connection loss is terminal: the
// session moves to Closed or Failed and a reconnect means a new Session.
type Session struct {
	cfg   Config
	tr    Transport
	recv  *Receiver
	send  *Sender
	creds Credentials

	state       atomic.Int32
	connectedAt time.Time
}

// New wires a session around an existing transport. Inbound audio lands in
// buf; finished transcripts go to onTranscript.
func New(cfg Config, tr Transport, buf *playback.Buffer, onTranscript func(text string)) *Session {
	s := &Session{cfg: cfg, tr: tr}
	s.recv = NewReceiver(buf, onTranscript)
	s.state.Store(int32(StateIdle))
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Connect negotiates credentials and opens the transport. On success the
// session is Open and the sender is running.
func (s *Session) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateConnecting)) {
		return fmt.Errorf("connect from state %s", s.State())
	}

	start := time.Now()
	creds, err := Negotiate(ctx, s.cfg)
	if err != nil {
		s.state.Store(int32(StateFailed))
		return err
	}
	s.creds = creds

	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.ClientSecret)

	cb := Callbacks{
		OnOpen: func() {
			s.state.Store(int32(StateOpen))
		},
		OnMessage: s.recv.HandleMessage,
		OnError: func(err error) {
			log.Errorf("transport: %v", err)
		},
		OnClose: func(err error) {
			if err != nil {
				log.Errorf("connection lost: %v", err)
				s.state.Store(int32(StateFailed))
				return
			}
			s.state.Store(int32(StateClosed))
		},
	}

	if err := s.tr.Connect(ctx, creds.SocketURL, header, cb); err != nil {
		s.state.Store(int32(StateFailed))
		return fmt.Errorf("transport connect: %w", err)
	}
	s.connectedAt = time.Now()
	s.send = NewSender(s.tr)

	log.Info(fmt.Sprintf("session open in %s", time.Since(start).Round(time.Millisecond)))
	log.SessionStart(s.cfg.Model, s.cfg.SampleRate)
	return nil
}

// Sender returns the outbound audio path. Nil before Connect succeeds.
func (s *Session) Sender() *Sender {
	return s.send
}

// Receiver returns the inbound decoder, mainly for its stats.
func (s *Session) Receiver() *Receiver {
	return s.recv
}

// ConnectedFor reports how long the transport has been open.
func (s *Session) ConnectedFor() time.Duration {
	if s.connectedAt.IsZero() {
		return 0
	}
	return time.Since(s.connectedAt)
}

// Close tears the session down. Safe to call from any state.
func (s *Session) Close() error {
	if s.send != nil {
		s.send.Close()
	}
	err := s.tr.Close()
	// A failed session stays failed; everything else ends closed.
	if s.State() != StateFailed {
		s.state.Store(int32(StateClosed))
	}
	return err
}
