package replay

import (
	"context"

	"github.com/park285/chess-replay/pkg/replaydto"
)

// Sink receives every accepted ply in order. A sink error ends the replay.
type Sink interface {
	Consume(ctx context.Context, snap replaydto.Snapshot) error
}

// Finisher is implemented by sinks that also want the final summary.
type Finisher interface {
	Finish(ctx context.Context, summary *replaydto.Summary) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, snap replaydto.Snapshot) error

func (f SinkFunc) Consume(ctx context.Context, snap replaydto.Snapshot) error { return f(ctx, snap) }
