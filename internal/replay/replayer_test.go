package replay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/park285/chess-replay/internal/board"
	"github.com/park285/chess-replay/internal/notation"
	"github.com/park285/chess-replay/internal/resolver"
	"github.com/park285/chess-replay/pkg/replaydto"
)

const scholarsMate = `1 e4 e5
2 Bc4 Nc6
3 Qh5 Nf6
4 Qxf7+
`

type recordingSink struct {
	snaps    []replaydto.Snapshot
	finished *replaydto.Summary
	failAt   int
}

func (s *recordingSink) Consume(_ context.Context, snap replaydto.Snapshot) error {
	if s.failAt > 0 && snap.Ply == s.failAt {
		return errors.New("sink down")
	}
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *recordingSink) Finish(_ context.Context, summary *replaydto.Summary) error {
	s.finished = summary
	return nil
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestRunWholeGame(t *testing.T) {
	sink := &recordingSink{}
	r := New(Options{Sinks: []Sink{sink}, ReplayID: "game-1", Now: fixedNow}, nil)

	sum, err := r.Run(context.Background(), strings.NewReader(scholarsMate))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.ReplayID != "game-1" || sum.Plies != 7 || sum.Accepted() != 7 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.WhiteKing != "(7, 4)" || sum.BlackKing != "(0, 4)" {
		t.Fatalf("king squares = %s / %s", sum.WhiteKing, sum.BlackKing)
	}
	if len(sink.snaps) != 7 {
		t.Fatalf("sink saw %d snapshots", len(sink.snaps))
	}
	for i, snap := range sink.snaps {
		if snap.Ply != i+1 {
			t.Fatalf("snapshot %d has ply %d", i, snap.Ply)
		}
		want := "white"
		if i%2 == 1 {
			want = "black"
		}
		if snap.Side != want {
			t.Fatalf("snapshot %d side = %s", i, snap.Side)
		}
	}
	last := sink.snaps[6]
	if last.Token != "Qxf7+" || last.From != "h5" || last.To != "f7" || last.MoveNumber != 4 {
		t.Fatalf("last snapshot = %+v", last)
	}
	if got := last.Rows[1]; got != "p p p p . Q p p" {
		t.Fatalf("row 1 = %q", got)
	}
	if strings.Join(last.Rows, "\n") != strings.Join(sum.Rows, "\n") {
		t.Fatalf("summary rows differ from the last snapshot")
	}
	if sink.finished == nil || sink.finished.Plies != 7 || sink.finished.Aborted {
		t.Fatalf("finisher got %+v", sink.finished)
	}
}

func TestRunSkipPolicyRecordsErrors(t *testing.T) {
	input := "1 e4 e5\n2 Zz9 Nc6\n3 Nd4 Nf6\n"
	r := New(Options{Policy: PolicySkip}, nil)
	sum, err := r.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Plies != 6 || sum.Accepted() != 4 {
		t.Fatalf("plies=%d accepted=%d", sum.Plies, sum.Accepted())
	}
	if len(sum.Errors) != 2 {
		t.Fatalf("errors = %+v", sum.Errors)
	}
	if e := sum.Errors[0]; e.Code != replaydto.CodeParseError || e.Ply != 3 || e.Token != "Zz9" || e.Side != "white" {
		t.Fatalf("first error = %+v", e)
	}
	if e := sum.Errors[1]; e.Code != replaydto.CodeResolutionError || e.Ply != 5 || e.MoveNumber != 3 {
		t.Fatalf("second error = %+v", e)
	}
	b := r.Board()
	if b.PieceAt(board.Sq(2, 2)) != board.NewPiece(board.Knight, board.Black) ||
		b.PieceAt(board.Sq(2, 5)) != board.NewPiece(board.Knight, board.Black) {
		t.Fatalf("black knights not developed:\n%s", b)
	}
}

func TestRunAbortPolicyStopsAtFirstError(t *testing.T) {
	input := "1 e4 e5\n2 Zz9 Nc6\n3 Nf3 Nf6\n"
	sink := &recordingSink{}
	r := New(Options{Sinks: []Sink{sink}}, nil)
	sum, err := r.Run(context.Background(), strings.NewReader(input))
	if err == nil {
		t.Fatalf("expected error")
	}
	var pe *notation.ParseError
	if !errors.As(err, &pe) || pe.Ply != 3 || pe.Token != "Zz9" {
		t.Fatalf("expected ParseError at ply 3, got %v", err)
	}
	if !sum.Aborted || sum.Accepted() != 2 || len(sum.Errors) != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sink.finished == nil || !sink.finished.Aborted {
		t.Fatalf("finisher should see the aborted summary")
	}
	if r.Board().PieceAt(board.Sq(0, 1)) != board.NewPiece(board.Knight, board.Black) {
		t.Fatalf("replay continued past the failing ply")
	}
}

func TestRunAbortOnResolutionError(t *testing.T) {
	r := New(Options{}, nil)
	before := r.Board()
	_, err := r.Run(context.Background(), strings.NewReader("1 Nd4 e5\n"))
	var re *resolver.ResolutionError
	if !errors.As(err, &re) || re.Ply != 1 || re.Side != board.White {
		t.Fatalf("expected ResolutionError at ply 1, got %v", err)
	}
	if !r.Board().Equal(before) {
		t.Fatalf("failed ply mutated the board")
	}
}

func TestRunAcceptsBlankLinesAndTrailingWhiteMove(t *testing.T) {
	r := New(Options{}, nil)
	sum, err := r.Run(context.Background(), strings.NewReader("\n1. e4 e5\n\n   \n2. Qh5 1-0\n"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Plies != 3 || sum.Result != "1-0" {
		t.Fatalf("plies = %d result = %q", sum.Plies, sum.Result)
	}
}

func TestRunShortLineIsParseError(t *testing.T) {
	r := New(Options{Policy: PolicySkip}, nil)
	sum, err := r.Run(context.Background(), strings.NewReader("1 e4 e5\n2\n3 Nf3 Nc6\n"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].Code != replaydto.CodeParseError || sum.Errors[0].Token != "2" {
		t.Fatalf("errors = %+v", sum.Errors)
	}
	if sum.Accepted() != 4 {
		t.Fatalf("accepted = %d", sum.Accepted())
	}
}

func TestMalformedLineTakesItsOwnPly(t *testing.T) {
	r := New(Options{Policy: PolicySkip}, nil)
	sum, err := r.Run(context.Background(), strings.NewReader("1 e4 e5\n2\n3 Zz9 Nc6\n"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sum.Errors) != 2 {
		t.Fatalf("errors = %+v", sum.Errors)
	}
	if sum.Errors[0].Ply != 3 || sum.Errors[1].Ply != 4 {
		t.Fatalf("error plies = %d, %d", sum.Errors[0].Ply, sum.Errors[1].Ply)
	}
	if sum.Plies != 5 || sum.Accepted() != 3 {
		t.Fatalf("plies=%d accepted=%d", sum.Plies, sum.Accepted())
	}
}

func TestSinkErrorEndsReplayEvenWhenSkipping(t *testing.T) {
	sink := &recordingSink{failAt: 2}
	r := New(Options{Policy: PolicySkip, Sinks: []Sink{sink}}, nil)
	sum, err := r.Run(context.Background(), strings.NewReader(scholarsMate))
	if err == nil || !strings.Contains(err.Error(), "sink down") {
		t.Fatalf("expected sink error, got %v", err)
	}
	if !sum.Aborted || len(sink.snaps) != 1 {
		t.Fatalf("aborted=%v snaps=%d", sum.Aborted, len(sink.snaps))
	}
}

func TestImageFuncAttachesBytes(t *testing.T) {
	var seen []string
	sink := SinkFunc(func(_ context.Context, snap replaydto.Snapshot) error {
		seen = append(seen, string(snap.Image))
		return nil
	})
	img := func(_ context.Context, _ *board.Board, mv resolver.Move) ([]byte, error) {
		return []byte(mv.To.Algebraic()), nil
	}
	r := New(Options{Sinks: []Sink{sink}, Image: img}, nil)
	if _, err := r.Run(context.Background(), strings.NewReader("1 e4 e5\n")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(seen, ",") != "e4,e5" {
		t.Fatalf("images = %v", seen)
	}
}

func TestClassifyFillsOpening(t *testing.T) {
	var seen []string
	classify := func(tokens []string) (string, string) {
		seen = tokens
		return "C20", "King's Pawn Game"
	}
	r := New(Options{Policy: PolicySkip, Classify: classify}, nil)
	sum, err := r.Run(context.Background(), strings.NewReader("1 e4 e5\n2 Zz9 Nc6\n"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.ECO != "C20" || sum.Opening != "King's Pawn Game" {
		t.Fatalf("opening = %q %q", sum.ECO, sum.Opening)
	}
	if strings.Join(seen, " ") != "e4 e5 Nc6" {
		t.Fatalf("classifier saw %v", seen)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(Options{}, nil)
	sum, err := r.Run(ctx, strings.NewReader(scholarsMate))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sum.Plies != 0 {
		t.Fatalf("plies = %d", sum.Plies)
	}
}

func TestParseLine(t *testing.T) {
	line, ok, err := ParseLine("12. Nf3 Nc6 {comment}")
	if err != nil || !ok {
		t.Fatalf("ParseLine: ok=%v err=%v", ok, err)
	}
	if line.MoveNumber != 12 || line.White != "Nf3" || line.Black != "Nc6" {
		t.Fatalf("line = %+v", line)
	}
	if _, ok, err := ParseLine("   "); ok || err != nil {
		t.Fatalf("blank line: ok=%v err=%v", ok, err)
	}
	if _, _, err := ParseLine("7"); !errors.Is(err, notation.ErrMalformedToken) {
		t.Fatalf("short line: %v", err)
	}
	line, ok, _ = ParseLine("40 Kg2 0-1")
	if !ok || line.White != "Kg2" || line.Black != "" || line.Result != "0-1" {
		t.Fatalf("result marker line = %+v", line)
	}
	line, ok, _ = ParseLine("41 1/2-1/2")
	if !ok || line.White != "" || line.Result != "1/2-1/2" {
		t.Fatalf("bare result line = %+v", line)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PolicyAbort, "abort": PolicyAbort, "SKIP": PolicySkip} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
