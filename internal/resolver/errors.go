package resolver

import (
	"errors"
	"fmt"

	"github.com/park285/chess-replay/internal/board"
)

var ErrUnresolvable = errors.New("move cannot be resolved")

// ResolutionError reports a well-formed token for which no origin satisfies
// kind, side, disambiguator and self-check filters.
type ResolutionError struct {
	Ply    int
	Token  string
	To     board.Square
	Side   board.Side
	Reason string
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %q to %s for %s: %s", e.Token, e.To.Algebraic(), e.Side, e.Reason)
	if e.Ply > 0 {
		return fmt.Sprintf("ply %d: %s", e.Ply, msg)
	}
	return msg
}

func (e *ResolutionError) Is(target error) bool { return target == ErrUnresolvable }
