package board

var (
	knightAttackers   = []PieceKind{Knight}
	diagonalAttackers = []PieceKind{Bishop, Queen}
	straightAttackers = []PieceKind{Rook, Queen}
)

// KingInCheck reports whether the king on kingSquare is attacked along a
// knight jump, a diagonal or a straight line. The defending side is the
// occupant of kingSquare.
func (b *Board) KingInCheck(kingSquare Square) bool {
	side := b.PieceAt(kingSquare).Side
	return b.attackedBy(KnightAttacks(b, kingSquare), side, knightAttackers) ||
		b.attackedBy(DiagonalAttacks(b, kingSquare), side, diagonalAttackers) ||
		b.attackedBy(StraightAttacks(b, kingSquare), side, straightAttackers)
}

func (b *Board) attackedBy(squares []Square, defender Side, kinds []PieceKind) bool {
	for _, sq := range squares {
		p := b.PieceAt(sq)
		if p.IsEmpty() || p.Side == defender {
			continue
		}
		for _, k := range kinds {
			if p.Kind == k {
				return true
			}
		}
	}
	return false
}

// WouldCauseCheck applies the move to a throwaway clone and reports whether
// mover's king is then in check. The receiver is not modified.
func (b *Board) WouldCauseCheck(from, to Square, piece Piece, mover Side) bool {
	probe := b.Clone()
	probe.ApplyMove(from, to, piece)
	return probe.KingInCheck(probe.KingSquare(mover))
}

// LeavesKingInCheck runs an arbitrary mutation on a clone and checks mover's king.
func (b *Board) LeavesKingInCheck(mover Side, mutate func(*Board)) bool {
	probe := b.Clone()
	mutate(probe)
	return probe.KingInCheck(probe.KingSquare(mover))
}
