package egress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

const defaultWriteTimeout = 5 * time.Second

// WebSocket is a write-only frame connection. Writes are serialised; a failed
// write triggers up to maxRedials reconnects before the frame is retried once.
type WebSocket struct {
	wsURL string

	mu    sync.Mutex
	conn  *websocket.Conn
	state WebSocketState

	maxRedials     int
	writeTimeout   time.Duration
	headerProvider HeaderProvider
}

func NewWebSocket(wsURL string, maxRedials int) *WebSocket {
	return &WebSocket{
		wsURL:        strings.TrimSpace(wsURL),
		state:        WSStateDisconnected,
		maxRedials:   maxRedials,
		writeTimeout: defaultWriteTimeout,
	}
}

// SetHeaderProvider injects headers into the handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) {
	ws.headerProvider = h
}

func (ws *WebSocket) State() WebSocketState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.state
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.state == WSStateConnected {
		return nil
	}
	return ws.dialLocked(ctx)
}

func (ws *WebSocket) dialLocked(ctx context.Context) error {
	ws.state = WSStateConnecting
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		ws.state = WSStateFailed
		return fmt.Errorf("ws dial %s: %w", ws.wsURL, err)
	}
	// control frames are still processed; data frames from the peer are discarded
	conn.CloseRead(context.Background())
	ws.conn = conn
	ws.state = WSStateConnected
	return nil
}

// WriteFrame writes v as one JSON message.
func (ws *WebSocket) WriteFrame(ctx context.Context, v any) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.conn == nil || ws.state != WSStateConnected {
		if err := ws.dialLocked(ctx); err != nil {
			return err
		}
	}
	err := ws.writeLocked(ctx, v)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	_ = ws.closeConnLocked(websocket.StatusGoingAway, "reconnect")
	ws.state = WSStateDisconnected
	for attempt := 1; attempt <= ws.maxRedials; attempt++ {
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return err
		}
		if dialErr := ws.dialLocked(ctx); dialErr != nil {
			continue
		}
		return ws.writeLocked(ctx, v)
	}
	ws.state = WSStateFailed
	return err
}

func (ws *WebSocket) writeLocked(ctx context.Context, v any) error {
	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, ws.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(dctx, ws.conn, v)
}

func (ws *WebSocket) Close() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.state = WSStateDisconnected
	return ws.closeConnLocked(websocket.StatusNormalClosure, "close")
}

func (ws *WebSocket) closeConnLocked(code websocket.StatusCode, reason string) error {
	if ws.conn == nil {
		return nil
	}
	defer func() { ws.conn = nil }()
	err := ws.conn.Close(code, reason)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
