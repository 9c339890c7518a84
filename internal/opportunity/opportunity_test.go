package opportunity

import (
	"testing"
)

func validCPEvent() Event {
	return Event{
		Kind:        KindCP,
		DeltaCP:     150,
		TPlies:      3,
		FENAfter:    "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2",
		BestMoveUCI: "e4d5",
		PVMoves:     []string{"e4d5", "g8f6", "g1f3"},
		PVEvals:     []int{150, 140, 145},
		PlayerColor: "white",
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"valid cp", func(e *Event) {}, false},
		{"valid mate", func(e *Event) {
			e.Kind = KindMate
			e.MateIn = 2
			e.DeltaCP = 0
		}, false},
		{"unknown kind", func(e *Event) { e.Kind = "blunder" }, true},
		{"cp without delta", func(e *Event) { e.DeltaCP = 0 }, true},
		{"cp delta below cutoff", func(e *Event) { e.DeltaCP = 99 }, true},
		{"cp delta at cutoff", func(e *Event) { e.DeltaCP = 100 }, false},
		{"mate without distance", func(e *Event) {
			e.Kind = KindMate
			e.MateIn = 0
		}, true},
		{"zero t_plies", func(e *Event) { e.TPlies = 0 }, true},
		{"evals longer than moves", func(e *Event) {
			e.PVEvals = []int{1, 2, 3, 4}
		}, true},
		{"evals shorter than moves", func(e *Event) {
			e.PVEvals = []int{150}
		}, false},
		{"pv head mismatch", func(e *Event) {
			e.PVMoves = []string{"d1h5", "g8f6"}
			e.PVEvals = nil
		}, true},
		{"missing fen_after", func(e *Event) { e.FENAfter = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validCPEvent()
			tt.mutate(&ev)
			err := ev.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvent_IsMissed(t *testing.T) {
	ev := validCPEvent()
	if !ev.IsMissed() {
		t.Error("IsMissed() = false for converted_actual 0")
	}
	ev.ConvertedActual = 1
	if ev.IsMissed() {
		t.Error("IsMissed() = true for converted_actual 1")
	}
}

func TestPipeMoves_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		moves []string
		want  string
	}{
		{"empty", nil, ""},
		{"single", []string{"e2e4"}, "e2e4"},
		{"line", []string{"e2e4", "e7e5", "g1f3"}, "e2e4|e7e5|g1f3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := JoinMoves(tt.moves)
			if joined != tt.want {
				t.Errorf("JoinMoves = %q, want %q", joined, tt.want)
			}
			back := SplitMoves(joined)
			if len(back) != len(tt.moves) {
				t.Fatalf("SplitMoves returned %d moves, want %d", len(back), len(tt.moves))
			}
			for i := range back {
				if back[i] != tt.moves[i] {
					t.Errorf("move %d = %q, want %q", i, back[i], tt.moves[i])
				}
			}
		})
	}
}

func TestPipeEvals_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		evals []int
		want  string
	}{
		{"empty", nil, ""},
		{"single", []int{42}, "42"},
		{"mixed signs", []int{31, -88, 0, 120}, "31|-88|0|120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := JoinEvals(tt.evals)
			if joined != tt.want {
				t.Errorf("JoinEvals = %q, want %q", joined, tt.want)
			}
			back, err := SplitEvals(joined)
			if err != nil {
				t.Fatalf("SplitEvals failed: %v", err)
			}
			if len(back) != len(tt.evals) {
				t.Fatalf("SplitEvals returned %d evals, want %d", len(back), len(tt.evals))
			}
			for i := range back {
				if back[i] != tt.evals[i] {
					t.Errorf("eval %d = %d, want %d", i, back[i], tt.evals[i])
				}
			}
		})
	}
}

func TestSplitEvals_Malformed(t *testing.T) {
	if _, err := SplitEvals("31|abc|12"); err == nil {
		t.Error("SplitEvals accepted a non-numeric entry")
	}
}
