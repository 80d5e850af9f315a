package replay

import (
	"fmt"
	"strings"
)

// Policy decides what happens when a ply cannot be decoded or resolved.
type Policy int

const (
	// PolicyAbort stops the replay at the first failed ply.
	PolicyAbort Policy = iota
	// PolicySkip records the failure, leaves the board untouched and moves on.
	PolicySkip
)

func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	default:
		return "abort"
	}
}

// ParsePolicy accepts "abort", "skip" or an empty string (abort).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return PolicyAbort, nil
	case "skip":
		return PolicySkip, nil
	default:
		return PolicyAbort, fmt.Errorf("unknown error policy %q", s)
	}
}
