package egress

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/chess-replay/pkg/replaydto"
)

// Egress delivers one frame to a remote consumer.
type Egress interface {
	Send(ctx context.Context, frame *Frame) error
}

const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
)

// NewEgress picks a transport. Auto prefers a connected WebSocket and falls
// back to HTTP once per frame.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dryrun {
		return &dryrunEgress{logger: logger}
	}
	switch mode {
	case ModeWS:
		return &wsEgress{ws: ws}
	case ModeAuto:
		return &autoEgress{ws: &wsEgress{ws: ws}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) Send(ctx context.Context, frame *Frame) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.Post(ctx, frame)
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) Send(ctx context.Context, frame *Frame) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	return w.ws.WriteFrame(ctx, frame)
}

func (w *wsEgress) connected() bool {
	return w != nil && w.ws != nil && w.ws.State() == WSStateConnected
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Send(ctx context.Context, frame *Frame) error {
	if a.ws.connected() {
		err := a.ws.Send(ctx, frame)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", frame.Type), zap.Error(err))
	}
	return a.http.Send(ctx, frame)
}

type dryrunEgress struct{ logger *zap.Logger }

func (d *dryrunEgress) Send(_ context.Context, frame *Frame) error {
	fields := []zap.Field{zap.String("type", frame.Type)}
	if frame.Snapshot != nil {
		fields = append(fields, zap.Int("ply", frame.Snapshot.Ply), zap.String("token", frame.Snapshot.Token))
	}
	d.logger.Info("egress_dryrun", fields...)
	return nil
}

// Sink adapts an Egress to the replay sink interfaces.
type Sink struct {
	egress    Egress
	keepImage bool
}

func NewSink(e Egress, keepImage bool) *Sink {
	return &Sink{egress: e, keepImage: keepImage}
}

func (s *Sink) Consume(ctx context.Context, snap replaydto.Snapshot) error {
	if !s.keepImage {
		snap.Image = nil
	}
	return s.egress.Send(ctx, snapshotFrame(snap))
}

func (s *Sink) Finish(ctx context.Context, sum *replaydto.Summary) error {
	return s.egress.Send(ctx, summaryFrame(sum))
}
