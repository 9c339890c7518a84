package board

import (
	"strings"
	"testing"

	"github.com/freeeve/pgn/v3"
)

func TestParseUCI(t *testing.T) {
	tests := []struct {
		name    string
		uci     string
		from    int
		to      int
		promo   byte
		wantErr bool
	}{
		{"e2e4", "e2e4", 12, 28, 0, false},
		{"e7e8q", "e7e8q", 52, 60, 'q', false},
		{"a7a8r", "a7a8r", 48, 56, 'r', false},
		{"b7b8n", "b7b8n", 49, 57, 'n', false},
		{"c7c8b", "c7c8b", 50, 58, 'b', false},
		{"a1h8", "a1h8", 0, 63, 0, false},
		{"too short", "e2e", 0, 0, 0, true},
		{"bad file", "i2e4", 0, 0, 0, true},
		{"bad rank", "e9e4", 0, 0, 0, true},
		{"bad promo", "e7e8x", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, promo, err := ParseUCI(tt.uci)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseUCI(%s) error = %v, wantErr %v", tt.uci, err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if from != tt.from || to != tt.to || promo != tt.promo {
				t.Errorf("ParseUCI(%s) = (%d, %d, %q), want (%d, %d, %q)",
					tt.uci, from, to, promo, tt.from, tt.to, tt.promo)
			}
		})
	}
}

func TestFindUCI_RoundTrip(t *testing.T) {
	pos := pgn.NewStartingPosition()

	testCases := []string{"e2e4", "g1f3", "b1c3", "h2h4"}
	for _, uci := range testCases {
		t.Run(uci, func(t *testing.T) {
			mv, err := FindUCI(pos, uci)
			if err != nil {
				t.Fatalf("FindUCI(%s) failed: %v", uci, err)
			}
			if got := FormatUCI(mv); got != uci {
				t.Errorf("round trip failed: %s -> %s", uci, got)
			}
		})
	}
}

func TestFindUCI_Promotion(t *testing.T) {
	// Each promotion letter must select its own move out of the four
	// legal promotions on a8.
	for _, uci := range []string{"a7a8q", "a7a8r", "a7a8b", "a7a8n"} {
		t.Run(uci, func(t *testing.T) {
			pos, err := FromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
			if err != nil {
				t.Fatalf("FromFEN failed: %v", err)
			}
			mv, err := FindUCI(pos, uci)
			if err != nil {
				t.Fatalf("FindUCI(%s) failed: %v", uci, err)
			}
			if got := FormatUCI(mv); got != uci {
				t.Errorf("round trip failed: %s -> %s", uci, got)
			}
			if err := ApplyUCI(pos, uci); err != nil {
				t.Fatalf("ApplyUCI(%s) failed: %v", uci, err)
			}
		})
	}

	// Without a promotion letter no legal move matches.
	pos, err := FromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN failed: %v", err)
	}
	if _, err := FindUCI(pos, "a7a8"); err == nil {
		t.Error("FindUCI(a7a8) matched a promotion without the letter")
	}
}

func TestFindUCI_Illegal(t *testing.T) {
	pos := pgn.NewStartingPosition()

	tests := []string{"e2e5", "e7e5", "a1a8", "e2e"}
	for _, uci := range tests {
		t.Run(uci, func(t *testing.T) {
			if _, err := FindUCI(pos, uci); err == nil {
				t.Errorf("FindUCI(%s) succeeded, want error", uci)
			}
		})
	}
}

func TestApplyUCI(t *testing.T) {
	pos := pgn.NewStartingPosition()

	if err := ApplyUCI(pos, "e2e4"); err != nil {
		t.Fatalf("ApplyUCI(e2e4) failed: %v", err)
	}
	fen := pos.ToFEN()
	if !strings.Contains(fen, " b ") {
		t.Errorf("after e2e4 side to move = white, FEN %s", fen)
	}

	if err := ApplyUCI(pos, "e7e5"); err != nil {
		t.Fatalf("ApplyUCI(e7e5) failed: %v", err)
	}
	if !WhiteToMove(pos.ToFEN()) {
		t.Errorf("after e7e5 side to move = black, FEN %s", pos.ToFEN())
	}
}

func TestApplyUCI_IllegalLeavesPosition(t *testing.T) {
	pos := pgn.NewStartingPosition()
	before := pos.ToFEN()

	if err := ApplyUCI(pos, "e2e5"); err == nil {
		t.Fatal("ApplyUCI(e2e5) succeeded, want error")
	}
	if got := pos.ToFEN(); got != before {
		t.Errorf("position changed on illegal move: %s -> %s", before, got)
	}
}

func TestClone(t *testing.T) {
	pos := pgn.NewStartingPosition()
	cp := Clone(pos)
	if cp == nil {
		t.Fatal("Clone returned nil")
	}

	if err := ApplyUCI(cp, "e2e4"); err != nil {
		t.Fatalf("ApplyUCI on clone failed: %v", err)
	}
	if pos.ToFEN() == cp.ToFEN() {
		t.Error("mutating clone changed the original position")
	}
}

func TestSAN(t *testing.T) {
	tests := []struct {
		name  string
		setup []string // UCI moves to reach the position
		uci   string
		want  string
	}{
		{"pawn push", nil, "e2e4", "e4"},
		{"knight", nil, "g1f3", "Nf3"},
		{"pawn capture", []string{"e2e4", "d7d5"}, "e4d5", "exd5"},
		{"queen out", []string{"e2e4", "e7e5"}, "d1h5", "Qh5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := pgn.NewStartingPosition()
			for _, m := range tt.setup {
				if err := ApplyUCI(pos, m); err != nil {
					t.Fatalf("setup move %s failed: %v", m, err)
				}
			}
			mv, err := FindUCI(pos, tt.uci)
			if err != nil {
				t.Fatalf("FindUCI(%s) failed: %v", tt.uci, err)
			}
			if got := SAN(pos, mv); got != tt.want {
				t.Errorf("SAN(%s) = %s, want %s", tt.uci, got, tt.want)
			}
		})
	}
}

func TestSAN_Promotion(t *testing.T) {
	pos, err := FromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN failed: %v", err)
	}

	mv, err := FindUCI(pos, "a7a8q")
	if err != nil {
		t.Fatalf("FindUCI(a7a8q) failed: %v", err)
	}
	if got := SAN(pos, mv); got != "a8=Q" {
		t.Errorf("SAN(a7a8q) = %s, want a8=Q", got)
	}
}

func TestSAN_Checkmate(t *testing.T) {
	// Fool's mate: 1. f3 e5 2. g4 Qh4#
	pos := pgn.NewStartingPosition()
	for _, m := range []string{"f2f3", "e7e5", "g2g4"} {
		if err := ApplyUCI(pos, m); err != nil {
			t.Fatalf("setup move %s failed: %v", m, err)
		}
	}

	mv, err := FindUCI(pos, "d8h4")
	if err != nil {
		t.Fatalf("FindUCI(d8h4) failed: %v", err)
	}
	if got := SAN(pos, mv); got != "Qh4#" {
		t.Errorf("SAN(d8h4) = %s, want Qh4#", got)
	}
}
