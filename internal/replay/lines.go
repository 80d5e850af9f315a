package replay

import (
	"strconv"
	"strings"

	"github.com/park285/chess-replay/internal/notation"
)

// Line is one move pair from the input.
type Line struct {
	MoveNumber int
	White      string
	Black      string
	// Result is a game result marker found in place of a token.
	Result string
}

var resultMarkers = map[string]struct{}{
	"1-0":     {},
	"0-1":     {},
	"1/2-1/2": {},
	"*":       {},
}

// ParseLine splits "<moveNo> <white> [<black> ...]". The move number field is
// informational; fields past the third are ignored. A result marker in place
// of a token ends the line. ok is false for a blank line.
func ParseLine(text string) (line Line, ok bool, err error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Line{}, false, nil
	}
	if len(fields) < 2 {
		return Line{}, false, &notation.ParseError{Token: strings.TrimSpace(text), Reason: "line needs a move number and at least one token"}
	}
	if n, convErr := strconv.Atoi(strings.TrimRight(fields[0], ".")); convErr == nil {
		line.MoveNumber = n
	}
	if isResult(fields[1]) {
		line.Result = fields[1]
		return line, true, nil
	}
	line.White = fields[1]
	if len(fields) > 2 {
		if isResult(fields[2]) {
			line.Result = fields[2]
		} else {
			line.Black = fields[2]
			if len(fields) > 3 && isResult(fields[3]) {
				line.Result = fields[3]
			}
		}
	}
	return line, true, nil
}

func isResult(tok string) bool {
	_, ok := resultMarkers[tok]
	return ok
}
