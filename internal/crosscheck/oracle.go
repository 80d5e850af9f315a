// Package crosscheck replays the same tokens through an independent rules
// engine and compares its placement with ours square by square.
package crosscheck

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-replay/internal/board"
)

var ErrOracleRejected = errors.New("oracle rejected move")

// Oracle wraps a corentings game.
type Oracle struct {
	game *nchess.Game
}

func NewOracle() *Oracle {
	return &Oracle{game: nchess.NewGame()}
}

// Push plays one token. Check and mate suffixes are stripped because our
// grammar only carries '+'.
func (o *Oracle) Push(token string) error {
	mv := strings.TrimRight(strings.TrimSpace(token), "+#")
	if err := o.game.PushNotationMove(mv, nchess.AlgebraicNotation{}, nil); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrOracleRejected, token, err)
	}
	return nil
}

// Moves is the number of plies the oracle has accepted.
func (o *Oracle) Moves() int { return len(o.game.Moves()) }

var (
	oracleRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	oracleFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

// Placement converts the oracle position into our grid, row 0 being rank 8.
func (o *Oracle) Placement() [board.Size][board.Size]board.Piece {
	var out [board.Size][board.Size]board.Piece
	squares := o.game.Position().Board().SquareMap()
	for row, rank := range oracleRanks {
		for col, file := range oracleFiles {
			out[row][col] = fromOracle(squares[nchess.NewSquare(file, rank)])
		}
	}
	return out
}

// Rows renders the oracle placement in snapshot form.
func (o *Oracle) Rows() []string {
	grid := o.Placement()
	rows := make([]string, board.Size)
	for r := range grid {
		cells := make([]string, board.Size)
		for f, p := range grid[r] {
			cells[f] = string(p.Rune())
		}
		rows[r] = strings.Join(cells, " ")
	}
	return rows
}

// Compare diffs snapshot rows against the oracle. It returns nil on a match
// and *MismatchError otherwise.
func (o *Oracle) Compare(rows []string) error {
	want := o.Rows()
	if len(rows) != board.Size {
		return &MismatchError{Reason: fmt.Sprintf("snapshot has %d rows", len(rows))}
	}
	var diffs []SquareDiff
	for r := 0; r < board.Size; r++ {
		got := strings.Fields(rows[r])
		exp := strings.Fields(want[r])
		for f := 0; f < board.Size; f++ {
			g := "?"
			if f < len(got) {
				g = got[f]
			}
			if g != exp[f] {
				diffs = append(diffs, SquareDiff{Square: board.Sq(r, f).Algebraic(), Got: g, Want: exp[f]})
			}
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return &MismatchError{Diffs: diffs}
}

func fromOracle(p nchess.Piece) board.Piece {
	if p == nchess.NoPiece {
		return board.EmptyPiece
	}
	side := board.Black
	if p.Color() == nchess.White {
		side = board.White
	}
	var kind board.PieceKind
	switch p.Type() {
	case nchess.King:
		kind = board.King
	case nchess.Queen:
		kind = board.Queen
	case nchess.Rook:
		kind = board.Rook
	case nchess.Bishop:
		kind = board.Bishop
	case nchess.Knight:
		kind = board.Knight
	case nchess.Pawn:
		kind = board.Pawn
	default:
		return board.EmptyPiece
	}
	return board.NewPiece(kind, side)
}
