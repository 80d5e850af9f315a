package notation

import (
	"errors"
	"fmt"
)

var ErrMalformedToken = errors.New("malformed move token")

// ParseError reports a token that matches none of the supported shapes.
// Ply is 1-based and zero when the token was decoded outside a replay.
type ParseError struct {
	Ply    int
	Token  string
	Reason string
}

func newParseError(token, reason string) *ParseError {
	return &ParseError{Token: token, Reason: reason}
}

func (e *ParseError) Error() string {
	if e.Ply > 0 {
		return fmt.Sprintf("ply %d: malformed token %q: %s", e.Ply, e.Token, e.Reason)
	}
	return fmt.Sprintf("malformed token %q: %s", e.Token, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrMalformedToken }
