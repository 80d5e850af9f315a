// Package notation classifies terse algebraic move tokens into a closed set of
// shapes. It performs no board lookups; resolution happens in the resolver.
package notation

import (
	"strings"

	"github.com/park285/chess-replay/internal/board"
)

// Shape is the closed set of token forms the replay understands.
type Shape int

const (
	ShapeUnknown Shape = iota
	CastleShort
	CastleLong
	PawnPush
	PawnCapture
	PieceMove
	DisambiguatedMove
)

func (s Shape) String() string {
	switch s {
	case CastleShort:
		return "castle-short"
	case CastleLong:
		return "castle-long"
	case PawnPush:
		return "pawn-push"
	case PawnCapture:
		return "pawn-capture"
	case PieceMove:
		return "piece-move"
	case DisambiguatedMove:
		return "disambiguated-piece-move"
	default:
		return "unknown"
	}
}

const (
	checkMarker      = '+'
	captureSeparator = 'x'
	noDisambiguator  = -1
)

// Intent is a decoded token. FromFile and FromRank are -1 when absent.
type Intent struct {
	Token    string
	Shape    Shape
	Kind     board.PieceKind
	To       board.Square
	FromFile int
	FromRank int
	Capture  bool
}

func (i Intent) HasFromFile() bool { return i.FromFile != noDisambiguator }
func (i Intent) HasFromRank() bool { return i.FromRank != noDisambiguator }

// Decode classifies token after stripping one trailing check marker.
func Decode(token string) (Intent, error) {
	raw := token
	t := strings.TrimSpace(token)
	if strings.HasSuffix(t, string(checkMarker)) {
		t = t[:len(t)-1]
	}
	in := Intent{Token: raw, FromFile: noDisambiguator, FromRank: noDisambiguator}

	switch {
	case t == "O-O":
		in.Shape, in.Kind = CastleShort, board.King
		return in, nil
	case t == "O-O-O":
		in.Shape, in.Kind = CastleLong, board.King
		return in, nil
	}

	switch len(t) {
	case 2:
		return decodePawnPush(in, t)
	case 3:
		return decodePieceMove(in, t)
	case 4:
		if t[1] == captureSeparator {
			return decodeCapture(in, t)
		}
		return decodeDisambiguated(in, t)
	}
	return Intent{}, newParseError(raw, "unrecognised token shape")
}

func destination(in Intent, file, rank byte) (board.Square, error) {
	sq, ok := board.ParseSquare(file, rank)
	if !ok {
		return board.Square{}, newParseError(in.Token, "invalid destination square "+string([]byte{file, rank}))
	}
	return sq, nil
}

func pieceKind(in Intent, c byte) (board.PieceKind, error) {
	k, ok := board.KindFromLetter(c)
	if !ok {
		return board.Empty, newParseError(in.Token, "unknown piece letter "+string(c))
	}
	return k, nil
}

func decodePawnPush(in Intent, t string) (Intent, error) {
	to, err := destination(in, t[0], t[1])
	if err != nil {
		return Intent{}, err
	}
	in.Shape, in.Kind, in.To = PawnPush, board.Pawn, to
	return in, nil
}

func decodePieceMove(in Intent, t string) (Intent, error) {
	kind, err := pieceKind(in, t[0])
	if err != nil {
		return Intent{}, err
	}
	to, err := destination(in, t[1], t[2])
	if err != nil {
		return Intent{}, err
	}
	in.Shape, in.Kind, in.To = PieceMove, kind, to
	return in, nil
}

func decodeCapture(in Intent, t string) (Intent, error) {
	to, err := destination(in, t[2], t[3])
	if err != nil {
		return Intent{}, err
	}
	in.To, in.Capture = to, true
	if file, ok := board.FileIndex(t[0]); ok {
		in.Shape, in.Kind, in.FromFile = PawnCapture, board.Pawn, file
		return in, nil
	}
	kind, err := pieceKind(in, t[0])
	if err != nil {
		return Intent{}, err
	}
	in.Shape, in.Kind = PieceMove, kind
	return in, nil
}

func decodeDisambiguated(in Intent, t string) (Intent, error) {
	kind, err := pieceKind(in, t[0])
	if err != nil {
		return Intent{}, err
	}
	to, err := destination(in, t[2], t[3])
	if err != nil {
		return Intent{}, err
	}
	in.Shape, in.Kind, in.To = DisambiguatedMove, kind, to
	if file, ok := board.FileIndex(t[1]); ok {
		in.FromFile = file
		return in, nil
	}
	if rank, ok := board.RankIndex(t[1]); ok {
		in.FromRank = rank
		return in, nil
	}
	return Intent{}, newParseError(in.Token, "disambiguator must be a file letter or rank digit")
}
