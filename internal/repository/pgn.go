package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/chess-replay/pkg/replaydto"
)

func mapResultToPGN(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "1-0", "white":
		return "1-0"
	case "0-1", "black":
		return "0-1"
	case "1/2-1/2", "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

// buildPGN renders the accepted tokens as movetext. Skipped plies are absent,
// so numbering follows the accepted sequence.
func buildPGN(sum *replaydto.Summary, source string) string {
	if sum == nil {
		return ""
	}
	var b strings.Builder
	date := sum.StartedAt
	if date.IsZero() {
		date = time.Now()
	}
	result := mapResultToPGN(sum.Result)
	b.WriteString("[Event \"Replay\"]\n")
	if strings.TrimSpace(source) != "" {
		b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(source)))
	} else {
		b.WriteString("[Site \"?\"]\n")
	}
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[White \"?\"]\n")
	b.WriteString("[Black \"?\"]\n")
	b.WriteString(fmt.Sprintf("[ReplayID \"%s\"]\n", sanitizePGN(sum.ReplayID)))
	if sum.ECO != "" {
		b.WriteString(fmt.Sprintf("[ECO \"%s\"]\n", sanitizePGN(sum.ECO)))
		b.WriteString(fmt.Sprintf("[Opening \"%s\"]\n", sanitizePGN(sum.Opening)))
	}
	if sum.Aborted {
		b.WriteString("[Termination \"unterminated\"]\n")
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(sum.Tokens); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, strings.TrimSpace(sum.Tokens[i])))
		if i+1 < len(sum.Tokens) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(sum.Tokens[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
