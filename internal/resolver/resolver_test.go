package resolver

import (
	"errors"
	"testing"

	"github.com/park285/chess-replay/internal/board"
	"github.com/park285/chess-replay/internal/notation"
)

func play(t *testing.T, r *Resolver, b *board.Board, side board.Side, token string) Move {
	t.Helper()
	in, err := notation.Decode(token)
	if err != nil {
		t.Fatalf("Decode(%q): %v", token, err)
	}
	mv, err := r.Execute(b, in, side)
	if err != nil {
		t.Fatalf("Execute(%q): %v\n%s", token, err, b)
	}
	return mv
}

func playLine(t *testing.T, r *Resolver, b *board.Board, tokens ...string) {
	t.Helper()
	side := board.White
	for _, tok := range tokens {
		play(t, r, b, side, tok)
		side = side.Opponent()
	}
}

func expectUnresolvable(t *testing.T, r *Resolver, b *board.Board, side board.Side, token string) *ResolutionError {
	t.Helper()
	in, err := notation.Decode(token)
	if err != nil {
		t.Fatalf("Decode(%q): %v", token, err)
	}
	before := b.Clone()
	_, err = r.Execute(b, in, side)
	if err == nil {
		t.Fatalf("Execute(%q): expected error\n%s", token, b)
	}
	if !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("Execute(%q): %v is not ErrUnresolvable", token, err)
	}
	if !b.Equal(before) {
		t.Fatalf("Execute(%q): failed ply mutated the board", token)
	}
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("Execute(%q): expected *ResolutionError, got %T", token, err)
	}
	return re
}

func sq(t *testing.T, s string) board.Square {
	t.Helper()
	v, ok := board.ParseSquare(s[0], s[1])
	if !ok {
		t.Fatalf("bad square %q", s)
	}
	return v
}

func TestOpeningPawnDoubleSteps(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()
	w := play(t, r, b, board.White, "e4")
	if w.From != board.Sq(6, 4) || w.To != board.Sq(4, 4) {
		t.Fatalf("e4 resolved %s→%s", w.From, w.To)
	}
	bl := play(t, r, b, board.Black, "e5")
	if bl.From != board.Sq(1, 4) || bl.To != board.Sq(3, 4) {
		t.Fatalf("e5 resolved %s→%s", bl.From, bl.To)
	}
	if !b.PieceAt(board.Sq(6, 4)).IsEmpty() || !b.PieceAt(board.Sq(1, 4)).IsEmpty() {
		t.Fatalf("origins not cleared:\n%s", b)
	}
}

func TestPawnSingleStepAfterDoubleStepRank(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()
	playLine(t, r, b, "e3", "d6", "e4")
	if b.PieceAt(sq(t, "e4")) != board.NewPiece(board.Pawn, board.White) || !b.PieceAt(sq(t, "e3")).IsEmpty() {
		t.Fatalf("e3-e4 not applied:\n%s", b)
	}
}

func TestCastleShortWhite(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()
	playLine(t, r, b, "e4", "e5", "Nf3", "Nc6", "Bc4", "Bc5", "O-O")
	if b.PieceAt(board.Sq(7, 6)) != board.NewPiece(board.King, board.White) {
		t.Fatalf("king not on g1:\n%s", b)
	}
	if b.PieceAt(board.Sq(7, 5)) != board.NewPiece(board.Rook, board.White) {
		t.Fatalf("rook not on f1:\n%s", b)
	}
	if !b.PieceAt(board.Sq(7, 4)).IsEmpty() || !b.PieceAt(board.Sq(7, 7)).IsEmpty() {
		t.Fatalf("castle origins not cleared:\n%s", b)
	}
	if b.WhiteKing() != board.Sq(7, 6) {
		t.Fatalf("king cache = %s", b.WhiteKing())
	}
}

func TestCastleRejectedWhenBlocked(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()
	expectUnresolvable(t, r, b, board.White, "O-O")
	expectUnresolvable(t, r, b, board.Black, "O-O-O")
}

func TestDisambiguatedKnightByFile(t *testing.T) {
	for _, strict := range []bool{false, true} {
		r := New(Options{StrictDisambiguation: strict}, nil)
		b, err := board.Setup(map[board.Square]board.Piece{
			board.Sq(7, 4): board.NewPiece(board.King, board.White),
			board.Sq(0, 4): board.NewPiece(board.King, board.Black),
			board.Sq(0, 1): board.NewPiece(board.Knight, board.Black),
			board.Sq(2, 5): board.NewPiece(board.Knight, board.Black),
		})
		if err != nil {
			t.Fatalf("Setup: %v", err)
		}
		mv := play(t, r, b, board.Black, "Nbd7")
		if mv.From != board.Sq(0, 1) {
			t.Fatalf("strict=%v: Nbd7 moved the knight from %s", strict, mv.From)
		}
		if b.PieceAt(board.Sq(2, 5)) != board.NewPiece(board.Knight, board.Black) {
			t.Fatalf("strict=%v: f6 knight disturbed:\n%s", strict, b)
		}
		if b.PieceAt(board.Sq(1, 3)) != board.NewPiece(board.Knight, board.Black) {
			t.Fatalf("strict=%v: d7 empty:\n%s", strict, b)
		}
	}
}

func TestDisambiguationScanVersusStrict(t *testing.T) {
	placement := map[board.Square]board.Piece{
		board.Sq(7, 4): board.NewPiece(board.King, board.White),
		board.Sq(0, 7): board.NewPiece(board.King, board.Black),
		board.Sq(0, 1): board.NewPiece(board.Knight, board.Black),
		board.Sq(2, 1): board.NewPiece(board.Knight, board.Black),
	}

	loose, _ := board.Setup(placement)
	mv := play(t, New(Options{}, nil), loose, board.Black, "Nbd5")
	if mv.From != board.Sq(0, 1) {
		t.Fatalf("file scan should take the first knight on the b-file, got %s", mv.From)
	}

	strict, _ := board.Setup(placement)
	mv = play(t, New(Options{StrictDisambiguation: true}, nil), strict, board.Black, "Nbd5")
	if mv.From != board.Sq(2, 1) {
		t.Fatalf("strict search should take the knight that reaches d5, got %s", mv.From)
	}
}

func TestDisambiguatedByRank(t *testing.T) {
	r := New(Options{}, nil)
	b, _ := board.Setup(map[board.Square]board.Piece{
		board.Sq(7, 6): board.NewPiece(board.King, board.White),
		board.Sq(0, 6): board.NewPiece(board.King, board.Black),
		board.Sq(7, 0): board.NewPiece(board.Rook, board.White),
		board.Sq(3, 0): board.NewPiece(board.Rook, board.White),
	})
	mv := play(t, r, b, board.White, "R1a3")
	if mv.From != board.Sq(7, 0) || mv.To != board.Sq(5, 0) {
		t.Fatalf("R1a3 resolved %s→%s", mv.From, mv.To)
	}
}

func TestEnPassant(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()
	playLine(t, r, b, "e4", "a6", "e5", "d5")
	if b.PieceAt(sq(t, "d6")) != board.EmptyPiece {
		t.Fatalf("d6 should be empty before the capture")
	}
	mv := play(t, r, b, board.White, "exd6")
	if !mv.EnPassant {
		t.Fatalf("expected en passant")
	}
	if mv.CaptureAt != sq(t, "d5") {
		t.Fatalf("capture square = %s", mv.CaptureAt.Algebraic())
	}
	if !b.PieceAt(sq(t, "d5")).IsEmpty() {
		t.Fatalf("black pawn on d5 not removed:\n%s", b)
	}
	if b.PieceAt(sq(t, "d6")) != board.NewPiece(board.Pawn, board.White) || !b.PieceAt(sq(t, "e5")).IsEmpty() {
		t.Fatalf("capturing pawn misplaced:\n%s", b)
	}
}

func TestEnPassantTowardHigherFile(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()
	playLine(t, r, b, "d4", "a6", "d5", "e5", "dxe6")
	if !b.PieceAt(sq(t, "e5")).IsEmpty() || b.PieceAt(sq(t, "e6")) != board.NewPiece(board.Pawn, board.White) {
		t.Fatalf("en passant toward the h-side failed:\n%s", b)
	}
}

func TestPawnCaptureOrdinary(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()
	playLine(t, r, b, "e4", "d5")
	mv := play(t, r, b, board.White, "exd5")
	if mv.EnPassant || mv.Captured != board.NewPiece(board.Pawn, board.Black) {
		t.Fatalf("unexpected capture %+v", mv)
	}
	mv = play(t, r, b, board.Black, "Qxd5")
	if mv.From != sq(t, "d8") || mv.Captured != board.NewPiece(board.Pawn, board.White) {
		t.Fatalf("Qxd5 resolved from %s capturing %s", mv.From.Algebraic(), mv.Captured)
	}
}

func TestSelfCheckSkipsPinnedCandidate(t *testing.T) {
	r := New(Options{}, nil)
	b, err := board.Setup(map[board.Square]board.Piece{
		sq(t, "f1"): board.NewPiece(board.King, board.White),
		sq(t, "d3"): board.NewPiece(board.Rook, board.White),
		sq(t, "h4"): board.NewPiece(board.Rook, board.White),
		sq(t, "b5"): board.NewPiece(board.Bishop, board.Black),
		sq(t, "h8"): board.NewPiece(board.King, board.Black),
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	first := Candidates(b, board.Rook, sq(t, "d4"), board.White)[0]
	if first != sq(t, "d3") {
		t.Fatalf("expected the pinned rook to be the first geometric candidate, got %s", first.Algebraic())
	}
	mv := play(t, r, b, board.White, "Rd4")
	if mv.From != sq(t, "h4") {
		t.Fatalf("Rd4 moved the rook from %s", mv.From.Algebraic())
	}
	if b.PieceAt(sq(t, "d3")) != board.NewPiece(board.Rook, board.White) {
		t.Fatalf("pinned rook moved:\n%s", b)
	}
}

func TestSlidersDoNotJumpEnemyPieces(t *testing.T) {
	r := New(Options{}, nil)
	b, _ := board.Setup(map[board.Square]board.Piece{
		sq(t, "e1"): board.NewPiece(board.King, board.White),
		sq(t, "a8"): board.NewPiece(board.King, board.Black),
		sq(t, "d8"): board.NewPiece(board.Rook, board.White),
		sq(t, "d7"): board.NewPiece(board.Pawn, board.Black),
		sq(t, "a5"): board.NewPiece(board.Rook, board.White),
	})
	mv := play(t, r, b, board.White, "Rd5")
	if mv.From != sq(t, "a5") {
		t.Fatalf("rook behind the d7 pawn must not be chosen, got %s", mv.From.Algebraic())
	}
}

func TestUnresolvableMoves(t *testing.T) {
	r := New(Options{}, nil)
	b := board.New()

	re := expectUnresolvable(t, r, b, board.White, "Nd4")
	if re.Side != board.White || re.To != sq(t, "d4") || re.Token != "Nd4" {
		t.Fatalf("unexpected error fields: %+v", re)
	}
	expectUnresolvable(t, r, b, board.White, "e5")
	expectUnresolvable(t, r, b, board.White, "Bxc4")
	expectUnresolvable(t, r, b, board.White, "exd3")
	expectUnresolvable(t, r, b, board.Black, "Nxd2")
}
