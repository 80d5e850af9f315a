package board

import "sort"

// Direction is a (dRank, dFile) step.
type Direction struct {
	DRank int
	DFile int
}

var (
	knightTable = [...]Direction{
		{-2, 1}, {-2, -1}, {1, -2}, {1, 2}, {-1, -2}, {-1, 2}, {2, -1}, {2, 1},
	}
	kingTable = [...]Direction{
		{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1},
	}

	// DiagonalDirections and StraightDirections list the rays of a bishop and
	// a rook, in the order their scans are concatenated.
	DiagonalDirections = [...]Direction{{-1, -1}, {1, 1}, {-1, 1}, {1, -1}}
	StraightDirections = [...]Direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// RayScan walks from origin one step at a time while the next square is in
// bounds. Each visited square is appended; the walk stops after appending a
// square occupied by a piece of stoppingSide.
func RayScan(b *Board, origin Square, dRank, dFile int, stoppingSide Side) []Square {
	var ray []Square
	cur := origin
	for {
		next := cur.Offset(dRank, dFile)
		if !next.InBounds() {
			return ray
		}
		ray = append(ray, next)
		if b.PieceAt(next).Side == stoppingSide {
			return ray
		}
		cur = next
	}
}

func scanAll(b *Board, origin Square, dirs []Direction, stoppingSide Side) []Square {
	var out []Square
	for _, d := range dirs {
		out = append(out, RayScan(b, origin, d.DRank, d.DFile, stoppingSide)...)
	}
	return out
}

// DiagonalRays concatenates the four bishop rays from origin.
func DiagonalRays(b *Board, origin Square, stoppingSide Side) []Square {
	return scanAll(b, origin, DiagonalDirections[:], stoppingSide)
}

// StraightRays concatenates the four rook rays from origin.
func StraightRays(b *Board, origin Square, stoppingSide Side) []Square {
	return scanAll(b, origin, StraightDirections[:], stoppingSide)
}

func offsets(sq Square, table []Direction) []Square {
	out := make([]Square, 0, len(table))
	for _, d := range table {
		if next := sq.Offset(d.DRank, d.DFile); next.InBounds() {
			out = append(out, next)
		}
	}
	return out
}

// KnightOffsets returns the in-bounds knight jumps from sq in table order.
func KnightOffsets(sq Square) []Square { return offsets(sq, knightTable[:]) }

// KingOffsets returns the in-bounds king steps from sq in table order.
func KingOffsets(sq Square) []Square { return offsets(sq, kingTable[:]) }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// FilterBlocking orders candidates by rank distance then file distance from
// ref and keeps reachable squares from toMove's point of view. Empty squares
// are kept. With sameColorBlocksAll the scan ends at the first occupied
// square, which is kept only when it belongs to the opponent. Without it every
// square is judged on its own: opponents are kept, own pieces are dropped.
func FilterBlocking(b *Board, candidates []Square, ref Square, toMove Side, sameColorBlocksAll bool) []Square {
	sorted := append([]Square(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := absInt(sorted[i].Rank-ref.Rank), absInt(sorted[j].Rank-ref.Rank)
		if di != dj {
			return di < dj
		}
		return absInt(sorted[i].File-ref.File) < absInt(sorted[j].File-ref.File)
	})

	var kept []Square
	for _, sq := range sorted {
		p := b.PieceAt(sq)
		switch {
		case p.IsEmpty():
			kept = append(kept, sq)
		case p.Side != toMove:
			kept = append(kept, sq)
			if sameColorBlocksAll {
				return kept
			}
		default:
			if sameColorBlocksAll {
				return kept
			}
		}
	}
	return kept
}

func rayAttacks(b *Board, sq Square, dirs []Direction) []Square {
	side := b.PieceAt(sq).Side
	var out []Square
	for _, d := range dirs {
		ray := RayScan(b, sq, d.DRank, d.DFile, side)
		out = append(out, FilterBlocking(b, ray, sq, side, true)...)
	}
	return out
}

// DiagonalAttacks returns the squares on the four diagonals of sq that are
// reachable from the occupant's point of view: empties up to and including the
// first opposing piece of each ray.
func DiagonalAttacks(b *Board, sq Square) []Square {
	return rayAttacks(b, sq, DiagonalDirections[:])
}

// StraightAttacks is DiagonalAttacks for ranks and files.
func StraightAttacks(b *Board, sq Square) []Square {
	return rayAttacks(b, sq, StraightDirections[:])
}

// KnightAttacks returns the knight-jump squares of sq that are empty or hold
// an opposing piece.
func KnightAttacks(b *Board, sq Square) []Square {
	return FilterBlocking(b, KnightOffsets(sq), sq, b.PieceAt(sq).Side, false)
}

// KingAttacks returns the adjacent squares of sq that are empty or hold an
// opposing piece.
func KingAttacks(b *Board, sq Square) []Square {
	return FilterBlocking(b, KingOffsets(sq), sq, b.PieceAt(sq).Side, false)
}
