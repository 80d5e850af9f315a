package crosscheck

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMismatch = errors.New("placement differs from oracle")

type SquareDiff struct {
	Square string
	Got    string
	Want   string
}

// MismatchError lists the squares where our board and the oracle disagree.
type MismatchError struct {
	Ply    int
	Token  string
	Reason string
	Diffs  []SquareDiff
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	if e.Ply > 0 {
		fmt.Fprintf(&b, "ply %d (%s): ", e.Ply, e.Token)
	}
	b.WriteString(ErrMismatch.Error())
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	for i, d := range e.Diffs {
		if i == 0 {
			b.WriteString(":")
		}
		fmt.Fprintf(&b, " %s got %s want %s;", d.Square, d.Got, d.Want)
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (e *MismatchError) Is(target error) bool { return target == ErrMismatch }
