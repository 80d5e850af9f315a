package board

import "fmt"

const Size = 8

// Square addresses the grid by (rank, file). Rank 0 is Black's home row, so
// chess rank 8 maps to row 0 and chess rank 1 to row 7.
type Square struct {
	Rank int
	File int
}

func Sq(rank, file int) Square { return Square{Rank: rank, File: file} }

func InBounds(rank, file int) bool {
	return rank >= 0 && rank < Size && file >= 0 && file < Size
}

func (s Square) InBounds() bool { return InBounds(s.Rank, s.File) }

// Offset returns the square shifted by (dRank, dFile); the result may be off the board.
func (s Square) Offset(dRank, dFile int) Square {
	return Square{Rank: s.Rank + dRank, File: s.File + dFile}
}

// String renders the (rank, file) pair used in replay output.
func (s Square) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rank, s.File)
}

// Algebraic renders the square as a file letter plus rank digit, e.g. "e4".
func (s Square) Algebraic() string {
	if !s.InBounds() {
		return "-"
	}
	return string([]byte{byte('a' + s.File), byte('0' + Size - s.Rank)})
}

// FileIndex converts a file letter to a file index.
func FileIndex(c byte) (int, bool) {
	if c < 'a' || c > 'h' {
		return 0, false
	}
	return int(c - 'a'), true
}

// RankIndex converts a rank digit to a row index; digit 8 is row 0.
func RankIndex(c byte) (int, bool) {
	if c < '1' || c > '8' {
		return 0, false
	}
	return Size - int(c-'0'), true
}

// ParseSquare decodes a file letter and rank digit into a square.
func ParseSquare(file, rank byte) (Square, bool) {
	f, ok := FileIndex(file)
	if !ok {
		return Square{}, false
	}
	r, ok := RankIndex(rank)
	if !ok {
		return Square{}, false
	}
	return Square{Rank: r, File: f}, true
}

func mustInBounds(s Square) {
	if !s.InBounds() {
		panic(fmt.Sprintf("board: square %s out of bounds", s))
	}
}
