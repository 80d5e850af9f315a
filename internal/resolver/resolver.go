// Package resolver turns a decoded move intent into a concrete origin square
// and applies it to the live board. Every check runs against the live board or
// a throwaway clone before the live board is touched, so a failed ply leaves it
// unchanged.
package resolver

import (
	"go.uber.org/zap"

	"github.com/park285/chess-replay/internal/board"
	"github.com/park285/chess-replay/internal/notation"
)

type Options struct {
	// StrictDisambiguation sends disambiguated tokens (Nbd7, R1e2) through the
	// general candidate search with self-check validation. When false they use
	// the plain file/rank scan with no reachability or self-check test.
	StrictDisambiguation bool
}

// Move is a resolved ply.
type Move struct {
	Token     string
	Shape     notation.Shape
	Side      board.Side
	Piece     board.Piece
	From      board.Square
	To        board.Square
	Captured  board.Piece
	CaptureAt board.Square
	EnPassant bool
}

func (m Move) IsCastle() bool {
	return m.Shape == notation.CastleShort || m.Shape == notation.CastleLong
}

type Resolver struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{opts: opts, logger: logger}
}

// Execute resolves the intent against b and applies it.
func (r *Resolver) Execute(b *board.Board, in notation.Intent, side board.Side) (Move, error) {
	mv, err := r.Resolve(b, in, side)
	if err != nil {
		return Move{}, err
	}
	Apply(b, mv)
	return mv, nil
}

// Apply performs the mechanical writes for a resolved move.
func Apply(b *board.Board, mv Move) {
	switch mv.Shape {
	case notation.CastleShort:
		b.CastleShort(mv.Side)
		return
	case notation.CastleLong:
		b.CastleLong(mv.Side)
		return
	}
	if mv.EnPassant {
		b.Remove(mv.CaptureAt)
	}
	b.ApplyMove(mv.From, mv.To, mv.Piece)
}

// Resolve finds the origin for in without mutating b.
func (r *Resolver) Resolve(b *board.Board, in notation.Intent, side board.Side) (Move, error) {
	if side != board.White && side != board.Black {
		return Move{}, r.fail(in, side, "side to move is undefined")
	}
	switch in.Shape {
	case notation.CastleShort, notation.CastleLong:
		return r.resolveCastle(b, in, side)
	case notation.PawnPush:
		return r.resolvePawnPush(b, in, side)
	case notation.PawnCapture:
		return r.resolvePawnCapture(b, in, side)
	case notation.PieceMove:
		return r.resolvePieceMove(b, in, side)
	case notation.DisambiguatedMove:
		if r.opts.StrictDisambiguation {
			return r.resolvePieceMove(b, in, side)
		}
		return r.resolveByScan(b, in, side)
	default:
		return Move{}, r.fail(in, side, "unsupported token shape "+in.Shape.String())
	}
}

func (r *Resolver) fail(in notation.Intent, side board.Side, reason string) *ResolutionError {
	r.logger.Debug("resolve_failed",
		zap.String("token", in.Token),
		zap.String("to", in.To.Algebraic()),
		zap.Stringer("side", side),
		zap.String("reason", reason),
	)
	return &ResolutionError{Token: in.Token, To: in.To, Side: side, Reason: reason}
}

// checkDestination rejects targets no legal ply can land on.
func (r *Resolver) checkDestination(b *board.Board, in notation.Intent, side board.Side) (board.Piece, error) {
	target := b.PieceAt(in.To)
	switch {
	case target.IsEmpty():
		return target, nil
	case target.Side == side:
		return target, r.fail(in, side, "destination holds own "+target.Kind.String())
	case target.Kind == board.King:
		return target, r.fail(in, side, "destination holds the enemy king")
	}
	return target, nil
}

func (r *Resolver) resolveCastle(b *board.Board, in notation.Intent, side board.Side) (Move, error) {
	home := side.HomeRank()
	kingFrom := board.Sq(home, 4)
	rookFile, kingFile, between := 7, 6, []int{5, 6}
	if in.Shape == notation.CastleLong {
		rookFile, kingFile, between = 0, 2, []int{1, 2, 3}
	}
	king := board.NewPiece(board.King, side)
	if b.PieceAt(kingFrom) != king {
		return Move{}, r.fail(in, side, "king is not on its home square")
	}
	if b.PieceAt(board.Sq(home, rookFile)) != board.NewPiece(board.Rook, side) {
		return Move{}, r.fail(in, side, "rook is not on its home square")
	}
	for _, f := range between {
		if !b.PieceAt(board.Sq(home, f)).IsEmpty() {
			return Move{}, r.fail(in, side, "castling path is blocked")
		}
	}
	mv := Move{
		Token: in.Token,
		Shape: in.Shape,
		Side:  side,
		Piece: king,
		From:  kingFrom,
		To:    board.Sq(home, kingFile),
	}
	if b.LeavesKingInCheck(side, func(p *board.Board) { Apply(p, mv) }) {
		return Move{}, r.fail(in, side, "castling leaves the king in check")
	}
	return mv, nil
}

// doubleStepRank is the destination row of a two-square pawn advance.
func doubleStepRank(side board.Side) int {
	if side == board.Black {
		return 3
	}
	return 4
}

func (r *Resolver) resolvePawnPush(b *board.Board, in notation.Intent, side board.Side) (Move, error) {
	if !b.PieceAt(in.To).IsEmpty() {
		return Move{}, r.fail(in, side, "pawn push destination is occupied")
	}
	pawn := board.NewPiece(board.Pawn, side)
	back := -side.Forward()
	oneBack := in.To.Offset(back, 0)
	twoBack := in.To.Offset(2*back, 0)

	var from board.Square
	switch {
	case in.To.Rank == doubleStepRank(side) && oneBack.InBounds() && twoBack.InBounds() &&
		b.PieceAt(oneBack).IsEmpty() && b.PieceAt(twoBack) == pawn:
		from = twoBack
	case oneBack.InBounds() && b.PieceAt(oneBack) == pawn:
		from = oneBack
	default:
		return Move{}, r.fail(in, side, "no pawn can advance to the destination")
	}
	if b.WouldCauseCheck(from, in.To, pawn, side) {
		return Move{}, r.fail(in, side, "pawn push leaves the king in check")
	}
	return Move{Token: in.Token, Shape: in.Shape, Side: side, Piece: pawn, From: from, To: in.To}, nil
}

func (r *Resolver) resolvePawnCapture(b *board.Board, in notation.Intent, side board.Side) (Move, error) {
	from := board.Sq(in.To.Rank-side.Forward(), in.FromFile)
	if !from.InBounds() {
		return Move{}, r.fail(in, side, "capturing pawn would stand off the board")
	}
	if d := from.File - in.To.File; d != 1 && d != -1 {
		return Move{}, r.fail(in, side, "pawn captures must change file by one")
	}
	pawn := board.NewPiece(board.Pawn, side)
	if b.PieceAt(from) != pawn {
		return Move{}, r.fail(in, side, "no pawn on "+from.Algebraic())
	}
	target, err := r.checkDestination(b, in, side)
	if err != nil {
		return Move{}, err
	}
	mv := Move{
		Token:     in.Token,
		Shape:     in.Shape,
		Side:      side,
		Piece:     pawn,
		From:      from,
		To:        in.To,
		Captured:  target,
		CaptureAt: in.To,
	}
	if target.IsEmpty() {
		// en passant: the captured pawn sits beside the capturer, on the destination file
		passed := board.Sq(from.Rank, in.To.File)
		if b.PieceAt(passed) != board.NewPiece(board.Pawn, side.Opponent()) {
			return Move{}, r.fail(in, side, "destination is empty and no pawn can be taken en passant")
		}
		mv.EnPassant = true
		mv.CaptureAt = passed
		mv.Captured = b.PieceAt(passed)
	}
	if b.LeavesKingInCheck(side, func(p *board.Board) { Apply(p, mv) }) {
		return Move{}, r.fail(in, side, "pawn capture leaves the king in check")
	}
	return mv, nil
}

// Candidates lists the squares from which a piece of kind could reach to,
// in search order.
func Candidates(b *board.Board, kind board.PieceKind, to board.Square, side board.Side) []board.Square {
	switch kind {
	case board.Knight:
		return board.KnightOffsets(to)
	case board.King:
		return board.KingOffsets(to)
	case board.Bishop:
		return slidingCandidates(b, to, board.DiagonalDirections[:], side)
	case board.Rook:
		return slidingCandidates(b, to, board.StraightDirections[:], side)
	case board.Queen:
		out := slidingCandidates(b, to, board.DiagonalDirections[:], side)
		return append(out, slidingCandidates(b, to, board.StraightDirections[:], side)...)
	default:
		return nil
	}
}

// slidingCandidates scans each ray with side as the stopping colour and cuts
// it at the first occupied square, since a slider cannot jump over either colour.
func slidingCandidates(b *board.Board, to board.Square, dirs []board.Direction, side board.Side) []board.Square {
	var out []board.Square
	for _, d := range dirs {
		for _, sq := range board.RayScan(b, to, d.DRank, d.DFile, side) {
			out = append(out, sq)
			if !b.PieceAt(sq).IsEmpty() {
				break
			}
		}
	}
	return out
}

func (r *Resolver) resolvePieceMove(b *board.Board, in notation.Intent, side board.Side) (Move, error) {
	target, err := r.checkDestination(b, in, side)
	if err != nil {
		return Move{}, err
	}
	if in.Capture && target.IsEmpty() {
		return Move{}, r.fail(in, side, "capture marker on an empty destination")
	}
	if !in.Capture && !target.IsEmpty() {
		r.logger.Debug("resolve_implicit_capture", zap.String("token", in.Token), zap.String("to", in.To.Algebraic()))
	}

	want := board.NewPiece(in.Kind, side)
	candidates := Candidates(b, in.Kind, in.To, side)
	sawPiece := false
	for _, sq := range candidates {
		if in.HasFromFile() && sq.File != in.FromFile {
			continue
		}
		if in.HasFromRank() && sq.Rank != in.FromRank {
			continue
		}
		if b.PieceAt(sq) != want {
			continue
		}
		sawPiece = true
		if b.WouldCauseCheck(sq, in.To, want, side) {
			r.logger.Debug("resolve_candidate_pinned", zap.String("token", in.Token), zap.String("from", sq.Algebraic()))
			continue
		}
		return Move{
			Token:     in.Token,
			Shape:     in.Shape,
			Side:      side,
			Piece:     want,
			From:      sq,
			To:        in.To,
			Captured:  target,
			CaptureAt: in.To,
		}, nil
	}
	if sawPiece {
		return Move{}, r.fail(in, side, "every candidate "+in.Kind.String()+" would leave the king in check")
	}
	return Move{}, r.fail(in, side, "no "+in.Kind.String()+" can reach the destination")
}

// resolveByScan picks the first piece of the stated kind on the named file or
// rank. It does not test reachability or self-check.
func (r *Resolver) resolveByScan(b *board.Board, in notation.Intent, side board.Side) (Move, error) {
	target, err := r.checkDestination(b, in, side)
	if err != nil {
		return Move{}, err
	}
	want := board.NewPiece(in.Kind, side)
	for i := 0; i < board.Size; i++ {
		sq := board.Sq(i, in.FromFile)
		if in.HasFromRank() {
			sq = board.Sq(in.FromRank, i)
		}
		if b.PieceAt(sq) == want {
			return Move{
				Token:     in.Token,
				Shape:     in.Shape,
				Side:      side,
				Piece:     want,
				From:      sq,
				To:        in.To,
				Captured:  target,
				CaptureAt: in.To,
			}, nil
		}
	}
	return Move{}, r.fail(in, side, "no "+in.Kind.String()+" on the disambiguating line")
}
