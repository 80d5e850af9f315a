// Package egress forwards replay snapshots to remote consumers over HTTP or
// WebSocket.
package egress

import (
	"fmt"

	"github.com/park285/chess-replay/pkg/replaydto"
)

const (
	FrameSnapshot = "snapshot"
	FrameSummary  = "summary"
)

// Frame is the envelope written to both transports.
type Frame struct {
	Type     string              `json:"type"`
	Snapshot *replaydto.Snapshot `json:"snapshot,omitempty"`
	Summary  *replaydto.Summary  `json:"summary,omitempty"`
}

func snapshotFrame(snap replaydto.Snapshot) *Frame {
	return &Frame{Type: FrameSnapshot, Snapshot: &snap}
}

func summaryFrame(sum *replaydto.Summary) *Frame {
	return &Frame{Type: FrameSummary, Summary: sum}
}

func (f *Frame) replayID() string {
	switch {
	case f.Snapshot != nil:
		return f.Snapshot.ReplayID
	case f.Summary != nil:
		return f.Summary.ReplayID
	}
	return ""
}

func (f *Frame) ply() int {
	if f.Snapshot != nil {
		return f.Snapshot.Ply
	}
	return 0
}

// idempotencyKey is stable across retries and reruns of the same replay id.
func (f *Frame) idempotencyKey() string {
	if f.Type == FrameSnapshot {
		return fmt.Sprintf("%s/ply/%d", f.replayID(), f.ply())
	}
	return f.replayID() + "/" + f.Type
}
