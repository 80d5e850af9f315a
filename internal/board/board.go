package board

import (
	"fmt"
	"strings"
)

// Board is the 8x8 grid plus the cached king squares. Every cell holds a
// Piece value; empty squares hold EmptyPiece.
type Board struct {
	grid      [Size][Size]Piece
	whiteKing Square
	blackKing Square
}

var backRank = [Size]PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// New returns a board in the standard starting layout.
func New() *Board {
	b := &Board{}
	for rank := 0; rank < Size; rank++ {
		for file := 0; file < Size; file++ {
			b.grid[rank][file] = EmptyPiece
		}
	}
	for file, kind := range backRank {
		b.grid[0][file] = NewPiece(kind, Black)
		b.grid[1][file] = NewPiece(Pawn, Black)
		b.grid[6][file] = NewPiece(Pawn, White)
		b.grid[7][file] = NewPiece(kind, White)
	}
	b.blackKing = Sq(0, 4)
	b.whiteKing = Sq(7, 4)
	return b
}

// Setup builds a board from an explicit placement. The placement must hold
// exactly one king per side.
func Setup(placement map[Square]Piece) (*Board, error) {
	b := &Board{}
	for rank := 0; rank < Size; rank++ {
		for file := 0; file < Size; file++ {
			b.grid[rank][file] = EmptyPiece
		}
	}
	kings := map[Side]int{}
	for sq, p := range placement {
		if !sq.InBounds() {
			return nil, fmt.Errorf("square %s out of bounds", sq)
		}
		if p.IsEmpty() {
			continue
		}
		if p.Side != White && p.Side != Black {
			return nil, fmt.Errorf("piece at %s has no side", sq.Algebraic())
		}
		b.grid[sq.Rank][sq.File] = p
		if p.Kind == King {
			kings[p.Side]++
			b.setKing(p.Side, sq)
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return nil, fmt.Errorf("placement needs exactly one king per side (white=%d black=%d)", kings[White], kings[Black])
	}
	return b, nil
}

// PieceAt returns the occupant of sq, EmptyPiece when unoccupied.
func (b *Board) PieceAt(sq Square) Piece {
	mustInBounds(sq)
	return b.grid[sq.Rank][sq.File]
}

// ApplyMove clears from and writes piece to to. No legality checking.
func (b *Board) ApplyMove(from, to Square, piece Piece) {
	mustInBounds(from)
	mustInBounds(to)
	b.grid[from.Rank][from.File] = EmptyPiece
	b.grid[to.Rank][to.File] = piece
	if piece.Kind == King {
		b.setKing(piece.Side, to)
	}
}

// Remove clears sq. Removing a king is an invariant violation.
func (b *Board) Remove(sq Square) {
	mustInBounds(sq)
	if b.grid[sq.Rank][sq.File].Kind == King {
		panic("board: cannot remove a king at " + sq.String())
	}
	b.grid[sq.Rank][sq.File] = EmptyPiece
}

// CastleShort moves king e→g and rook h→f on the side's home rank.
func (b *Board) CastleShort(side Side) {
	home := side.HomeRank()
	b.ApplyMove(Sq(home, 4), Sq(home, 6), b.PieceAt(Sq(home, 4)))
	b.ApplyMove(Sq(home, 7), Sq(home, 5), b.PieceAt(Sq(home, 7)))
}

// CastleLong moves king e→c and rook a→d on the side's home rank.
func (b *Board) CastleLong(side Side) {
	home := side.HomeRank()
	b.ApplyMove(Sq(home, 4), Sq(home, 2), b.PieceAt(Sq(home, 4)))
	b.ApplyMove(Sq(home, 0), Sq(home, 3), b.PieceAt(Sq(home, 0)))
}

// Clone returns a value-identical copy including the king cache.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// KingSquare returns the cached king square of side.
func (b *Board) KingSquare(side Side) Square {
	if side == Black {
		return b.blackKing
	}
	return b.whiteKing
}

func (b *Board) WhiteKing() Square { return b.whiteKing }
func (b *Board) BlackKing() Square { return b.blackKing }

func (b *Board) setKing(side Side, sq Square) {
	switch side {
	case White:
		b.whiteKing = sq
	case Black:
		b.blackKing = sq
	}
}

// Equal reports structural equality of grid and king cache.
func (b *Board) Equal(o *Board) bool {
	if b == nil || o == nil {
		return b == o
	}
	return *b == *o
}

// Rows renders each row as 8 space separated cells, row 0 first.
func (b *Board) Rows() []string {
	rows := make([]string, 0, Size)
	cells := make([]string, Size)
	for rank := 0; rank < Size; rank++ {
		for file := 0; file < Size; file++ {
			cells[file] = string(b.grid[rank][file].Rune())
		}
		rows = append(rows, strings.Join(cells, " "))
	}
	return rows
}

func (b *Board) String() string {
	return strings.Join(b.Rows(), "\n") + "\n"
}
