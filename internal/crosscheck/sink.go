package crosscheck

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/park285/chess-replay/pkg/replaydto"
)

// Sink feeds every accepted ply to an Oracle and fails on the first
// divergence.
type Sink struct {
	oracle *Oracle
	logger *zap.Logger
}

func NewSink(logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{oracle: NewOracle(), logger: logger}
}

func (s *Sink) Oracle() *Oracle { return s.oracle }

func (s *Sink) Consume(_ context.Context, snap replaydto.Snapshot) error {
	if err := s.oracle.Push(snap.Token); err != nil {
		s.logger.Warn("crosscheck_oracle_rejected", zap.Int("ply", snap.Ply), zap.String("token", snap.Token), zap.Error(err))
		return err
	}
	err := s.oracle.Compare(snap.Rows)
	var me *MismatchError
	if errors.As(err, &me) {
		me.Ply = snap.Ply
		me.Token = snap.Token
		s.logger.Warn("crosscheck_mismatch", zap.Int("ply", snap.Ply), zap.String("token", snap.Token), zap.Int("squares", len(me.Diffs)))
		return me
	}
	return err
}
