package board

import (
	"reflect"
	"testing"
)

func TestRayScanStopsAfterStoppingSide(t *testing.T) {
	b := New()
	d4 := Sq(4, 3)

	got := RayScan(b, d4, -1, 0, Black)
	want := []Square{Sq(3, 3), Sq(2, 3), Sq(1, 3)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("stop on black: got %v want %v", got, want)
	}

	got = RayScan(b, d4, -1, 0, White)
	want = []Square{Sq(3, 3), Sq(2, 3), Sq(1, 3), Sq(0, 3)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("pass through black: got %v want %v", got, want)
	}

	if got := RayScan(b, Sq(0, 0), -1, -1, White); len(got) != 0 {
		t.Fatalf("corner ray should be empty, got %v", got)
	}
}

func TestOffsetTablesKeepDeclarationOrder(t *testing.T) {
	got := KnightOffsets(Sq(7, 0))
	want := []Square{Sq(5, 1), Sq(6, 2)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("knight offsets from a1: got %v want %v", got, want)
	}
	if n := len(KnightOffsets(Sq(4, 4))); n != 8 {
		t.Fatalf("central knight offsets = %d", n)
	}
	got = KingOffsets(Sq(0, 7))
	want = []Square{Sq(0, 6), Sq(1, 6), Sq(1, 7)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("king offsets from h8: got %v want %v", got, want)
	}
}

func TestFilterBlocking(t *testing.T) {
	b := mustSetup(t, map[Square]Piece{
		Sq(7, 4): NewPiece(King, White),
		Sq(0, 4): NewPiece(King, Black),
		Sq(3, 3): NewPiece(Pawn, Black),
		Sq(5, 2): NewPiece(Pawn, White),
		Sq(3, 2): NewPiece(Pawn, Black),
	})
	ref := Sq(5, 3)

	t.Run("stops at first enemy and keeps it", func(t *testing.T) {
		got := FilterBlocking(b, []Square{Sq(2, 3), Sq(4, 3), Sq(3, 3)}, ref, White, true)
		want := []Square{Sq(4, 3), Sq(3, 3)}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})

	t.Run("stops at own piece without keeping it", func(t *testing.T) {
		got := FilterBlocking(b, []Square{Sq(5, 2), Sq(5, 1)}, ref, White, true)
		if len(got) != 0 {
			t.Fatalf("expected nothing, got %v", got)
		}
	})

	t.Run("offsets are judged independently", func(t *testing.T) {
		got := FilterBlocking(b, []Square{Sq(3, 2), Sq(5, 2), Sq(4, 1)}, ref, White, false)
		want := []Square{Sq(4, 1), Sq(3, 2)}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %v want %v", got, want)
		}
	})
}

func TestAttackQueriesUseOccupantSide(t *testing.T) {
	b := mustSetup(t, map[Square]Piece{
		Sq(7, 4): NewPiece(King, White),
		Sq(0, 4): NewPiece(King, Black),
		Sq(4, 4): NewPiece(Rook, Black),
		Sq(6, 3): NewPiece(Pawn, White),
	})
	e1 := Sq(7, 4)

	straight := StraightAttacks(b, e1)
	if !containsSquare(straight, Sq(4, 4)) {
		t.Fatalf("rook on e4 should be reachable from e1: %v", straight)
	}
	if containsSquare(straight, Sq(3, 4)) {
		t.Fatalf("squares behind the rook must not be reachable: %v", straight)
	}

	diagonal := DiagonalAttacks(b, e1)
	if containsSquare(diagonal, Sq(6, 3)) || containsSquare(diagonal, Sq(5, 2)) {
		t.Fatalf("own pawn on d2 should block the diagonal: %v", diagonal)
	}

	king := KingAttacks(b, e1)
	if containsSquare(king, Sq(6, 3)) {
		t.Fatalf("own pawn is not a king target: %v", king)
	}
	if len(king) != 4 {
		t.Fatalf("king targets = %v", king)
	}
}

func containsSquare(list []Square, sq Square) bool {
	for _, s := range list {
		if s == sq {
			return true
		}
	}
	return false
}
