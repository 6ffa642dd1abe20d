package session

import (
	"context"
	"net/http"
	"sync"
)

// Loopback is an in-process transport for tests and cooperative hosts.
// There is no read goroutine: inbound messages queue until the owner calls
// Pump, so delivery interleaves deterministically with the rest of the test.
type Loopback struct {
	// Peer, when set, produces the remote side's replies to each sent
	// message. Replies queue for the next Pump.
	Peer func(sent []byte) [][]byte

	mu      sync.Mutex
	cb      Callbacks
	open    bool
	sent    [][]byte
	pending [][]byte
}

func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) Connect(_ context.Context, _ string, _ http.Header, cb Callbacks) error {
	l.mu.Lock()
	l.cb = cb
	l.open = true
	l.mu.Unlock()
	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	return nil
}

func (l *Loopback) Send(data []byte) error {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return ErrNotOpen
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	l.sent = append(l.sent, msg)
	peer := l.Peer
	l.mu.Unlock()

	if peer != nil {
		replies := peer(msg)
		l.mu.Lock()
		l.pending = append(l.pending, replies...)
		l.mu.Unlock()
	}
	return nil
}

func (l *Loopback) Open() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	wasOpen := l.open
	l.open = false
	cb := l.cb
	l.mu.Unlock()
	if wasOpen && cb.OnClose != nil {
		cb.OnClose(nil)
	}
	return nil
}

// Inject queues an inbound message as if the remote side had sent it.
func (l *Loopback) Inject(data []byte) {
	l.mu.Lock()
	l.pending = append(l.pending, data)
	l.mu.Unlock()
}

// Pump delivers all queued inbound messages through OnMessage and returns
// how many were delivered.
func (l *Loopback) Pump() int {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	cb := l.cb
	l.mu.Unlock()

	if cb.OnMessage != nil {
		for _, msg := range batch {
			cb.OnMessage(msg)
		}
	}
	return len(batch)
}

// Sent returns a copy of every message sent so far.
func (l *Loopback) Sent() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.sent))
	copy(out, l.sent)
	return out
}
