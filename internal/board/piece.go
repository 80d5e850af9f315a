package board

import "unicode"

// Side identifies the owner of a piece. Undefined only labels the empty sentinel.
type Side int

const (
	Undefined Side = iota
	White
	Black
)

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "undefined"
	}
}

// Opponent returns the other side; Undefined has no opponent.
func (s Side) Opponent() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	default:
		return Undefined
	}
}

// HomeRank is the row holding the side's king and rooks in the starting layout.
// Row 0 is Black's home row.
func (s Side) HomeRank() int {
	if s == Black {
		return 0
	}
	return 7
}

// Forward is the row delta of a pawn advance.
func (s Side) Forward() int {
	if s == Black {
		return 1
	}
	return -1
}

type PieceKind int

const (
	Empty PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"empty", "pawn", "knight", "bishop", "rook", "queen", "king"}

func (k PieceKind) String() string {
	if k < Empty || k > King {
		return "unknown"
	}
	return kindNames[k]
}

// Letter is the notation letter of the kind. Knight uses N so it does not clash with King.
func (k PieceKind) Letter() byte {
	switch k {
	case Pawn:
		return 'P'
	case Knight:
		return 'N'
	case Bishop:
		return 'B'
	case Rook:
		return 'R'
	case Queen:
		return 'Q'
	case King:
		return 'K'
	default:
		return '.'
	}
}

// KindFromLetter maps an uppercase notation letter to a non-pawn kind.
func KindFromLetter(c byte) (PieceKind, bool) {
	switch c {
	case 'N':
		return Knight, true
	case 'B':
		return Bishop, true
	case 'R':
		return Rook, true
	case 'Q':
		return Queen, true
	case 'K':
		return King, true
	default:
		return Empty, false
	}
}

// Piece is a value pair; two pieces are equal when kind and side are equal.
type Piece struct {
	Kind PieceKind
	Side Side
}

// EmptyPiece is stored on every unoccupied square.
var EmptyPiece = Piece{Kind: Empty, Side: Undefined}

func NewPiece(kind PieceKind, side Side) Piece {
	if kind == Empty {
		return EmptyPiece
	}
	return Piece{Kind: kind, Side: side}
}

func (p Piece) IsEmpty() bool { return p.Kind == Empty }

// Rune renders the piece for a text snapshot: uppercase White, lowercase Black, '.' empty.
func (p Piece) Rune() rune {
	if p.IsEmpty() {
		return '.'
	}
	r := rune(p.Kind.Letter())
	if p.Side == Black {
		return unicode.ToLower(r)
	}
	return r
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Side.String() + " " + p.Kind.String()
}
