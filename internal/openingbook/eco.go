// Package openingbook names the opening a replayed line follows, using the
// ECO table bundled with corentings/chess.
package openingbook

import (
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// MaxPly bounds how much of a game is fed to the ECO lookup; no ECO line is longer.
const MaxPly = 40

var (
	bookOnce sync.Once
	ecoBook  *opening.BookECO
)

func book() *opening.BookECO {
	bookOnce.Do(func() { ecoBook = opening.NewBookECO() })
	return ecoBook
}

// Classify returns the ECO code and title of the deepest named opening that
// tokens follow. Feeding stops at the first token the rules engine rejects, so
// a skipped or illegal ply ends the match rather than failing it.
func Classify(tokens []string) (code, title string) {
	if len(tokens) == 0 {
		return "", ""
	}
	game := chesslib.NewGame()
	for i, tok := range tokens {
		if i >= MaxPly {
			break
		}
		mv := strings.TrimRight(strings.TrimSpace(tok), "+#")
		if err := game.PushNotationMove(mv, chesslib.AlgebraicNotation{}, nil); err != nil {
			break
		}
	}
	if len(game.Moves()) == 0 {
		return "", ""
	}
	if eco := book().Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
