package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
)

// ErrNotOpen is returned by Send when the transport has no live connection.
var ErrNotOpen = errors.New("transport not open")

// Callbacks are installed at Connect time, before any message is read.
// OnMessage, OnError and OnClose fire on the transport's read goroutine.
// OnError reports an abnormal read failure just before the terminal OnClose.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnError   func(err error)
	OnClose   func(err error)
}

// Transport carries wire messages both ways. One Transport serves one
// connection; reconnection means a new Transport.
type Transport interface {
	Connect(ctx context.Context, url string, header http.Header, cb Callbacks) error
	Send(data []byte) error
	Open() bool
	Close() error
}

const wsReadLimit = 1 << 20

// WSTransport is the production transport, a single websocket with a
// dedicated read goroutine delivering messages in arrival order.
type WSTransport struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	cb     Callbacks

	open      atomic.Bool
	closeOnce sync.Once
}

func NewWSTransport() *WSTransport {
	return &WSTransport{}
}

func (t *WSTransport) Connect(ctx context.Context, url string, header http.Header, cb Callbacks) error {
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		cancel()
		return err
	}
	conn.SetReadLimit(wsReadLimit)

	t.conn = conn
	t.ctx = connCtx
	t.cancel = cancel
	t.cb = cb
	t.open.Store(true)

	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	go t.readLoop()
	return nil
}

func (t *WSTransport) readLoop() {
	for {
		_, data, err := t.conn.Read(t.ctx)
		if err != nil {
			// wasOpen is false when Close initiated the teardown locally.
			wasOpen := t.open.Swap(false)
			normal := !wasOpen ||
				websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				t.ctx.Err() != nil
			if !normal && t.cb.OnError != nil {
				t.cb.OnError(err)
			}
			if t.cb.OnClose != nil {
				if normal {
					t.cb.OnClose(nil)
				} else {
					t.cb.OnClose(err)
				}
			}
			return
		}
		if t.cb.OnMessage != nil {
			t.cb.OnMessage(data)
		}
	}
}

func (t *WSTransport) Send(data []byte) error {
	if !t.open.Load() {
		return ErrNotOpen
	}
	return t.conn.Write(t.ctx, websocket.MessageText, data)
}

func (t *WSTransport) Open() bool {
	return t.open.Load()
}

func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.open.Store(false)
		// Close the handshake before canceling the read context: a canceled
		// read tears the connection down without the closing handshake.
		if t.conn != nil {
			err = t.conn.Close(websocket.StatusNormalClosure, "")
		}
		if t.cancel != nil {
			t.cancel()
		}
	})
	return err
}
