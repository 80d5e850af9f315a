package notation

import (
	"errors"
	"testing"

	"github.com/park285/chess-replay/internal/board"
)

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		token    string
		shape    Shape
		kind     board.PieceKind
		to       board.Square
		fromFile int
		fromRank int
		capture  bool
	}{
		{"O-O", CastleShort, board.King, board.Square{}, -1, -1, false},
		{"O-O-O", CastleLong, board.King, board.Square{}, -1, -1, false},
		{"O-O+", CastleShort, board.King, board.Square{}, -1, -1, false},
		{"e4", PawnPush, board.Pawn, board.Sq(4, 4), -1, -1, false},
		{"a8", PawnPush, board.Pawn, board.Sq(0, 0), -1, -1, false},
		{"Nf3", PieceMove, board.Knight, board.Sq(5, 5), -1, -1, false},
		{"Qh5+", PieceMove, board.Queen, board.Sq(3, 7), -1, -1, false},
		{"exd5", PawnCapture, board.Pawn, board.Sq(3, 3), 4, -1, true},
		{"Nxd5", PieceMove, board.Knight, board.Sq(3, 3), -1, -1, true},
		{"Bxf7+", PieceMove, board.Bishop, board.Sq(1, 5), -1, -1, true},
		{"Nbd7", DisambiguatedMove, board.Knight, board.Sq(1, 3), 1, -1, false},
		{"R1e2", DisambiguatedMove, board.Rook, board.Sq(6, 4), -1, 7, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.token, func(t *testing.T) {
			in, err := Decode(tt.token)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if in.Shape != tt.shape || in.Kind != tt.kind {
				t.Fatalf("shape/kind = %s/%s, want %s/%s", in.Shape, in.Kind, tt.shape, tt.kind)
			}
			if tt.shape != CastleShort && tt.shape != CastleLong && in.To != tt.to {
				t.Fatalf("to = %s, want %s", in.To, tt.to)
			}
			if in.FromFile != tt.fromFile || in.FromRank != tt.fromRank {
				t.Fatalf("disambiguator = (%d,%d), want (%d,%d)", in.FromFile, in.FromRank, tt.fromFile, tt.fromRank)
			}
			if in.Capture != tt.capture {
				t.Fatalf("capture = %v", in.Capture)
			}
			if in.Token != tt.token {
				t.Fatalf("token = %q", in.Token)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, token := range []string{"", "e", "e9", "Zf3", "Nf33x", "exd9", "N*d7", "Kxz1", "e8=Q", "O-O-O-O", "Nf3#", "e4#"} {
		_, err := Decode(token)
		if err == nil {
			t.Fatalf("%q: expected error", token)
		}
		if !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("%q: error %v is not ErrMalformedToken", token, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Token != token {
			t.Fatalf("%q: expected ParseError naming the token, got %v", token, err)
		}
	}
}

func TestParseErrorMessageIncludesPly(t *testing.T) {
	err := &ParseError{Ply: 7, Token: "Zz9", Reason: "unrecognised token shape"}
	want := `ply 7: malformed token "Zz9": unrecognised token shape`
	if err.Error() != want {
		t.Fatalf("Error() = %q", err.Error())
	}
}
