// Package opportunity defines the data model shared by the analysis
// pipeline, the store, the HTTP API, and the trainer UI: scoring
// opportunities detected in games, plus the aggregate shapes built
// from them.
package opportunity

import "fmt"

// Kind tags the two opportunity variants. A cp opportunity is an
// evaluation swing of at least the pipeline's centipawn cutoff; a mate
// opportunity is a forced mate the player had available.
type Kind string

const (
	KindCP   Kind = "cp"
	KindMate Kind = "mate"
)

// MinDeltaCP is the smallest evaluation swing that counts as an
// opportunity. A cp event below it is malformed, not merely small.
const MinDeltaCP = 100

// Event is one missed-or-converted scoring opportunity. Evaluations
// (DeltaCP, EvalBefore, PVEvals) are centipawns from the player's
// perspective.
type Event struct {
	Kind            Kind     `json:"opportunity_kind"`
	DeltaCP         int      `json:"delta_cp"`
	MateIn          int      `json:"mate_in,omitempty"`
	TargetPawns     int      `json:"target_pawns,omitempty"`
	TPlies          int      `json:"t_plies"`
	ConvertedActual int      `json:"converted_actual"`
	TPliesActual    int      `json:"t_plies_actual"`
	PlyIndex        int      `json:"ply_index"`
	MoveSAN         string   `json:"move_san"`
	MoveUCI         string   `json:"move_uci"`
	BestMoveSAN     string   `json:"best_move_san"`
	BestMoveUCI     string   `json:"best_move_uci"`
	FEN             string   `json:"fen"`
	FENAfter        string   `json:"fen_after"`
	PVMoves         []string `json:"pv_moves"`
	PVEvals         []int    `json:"pv_evals"`
	EvalBefore      int      `json:"eval_before"`
	GameURL         string   `json:"game_url"`
	PlayerColor     string   `json:"player_color"`
	TimeControl     string   `json:"time_control,omitempty"`
}

// Validate checks the structural invariants of an event at the ingest
// boundary, so downstream bucketing and replay code can switch on Kind
// without re-probing field presence. PVEvals shorter than PVMoves is
// tolerated; the replay engine interpolates over the gap.
func (e *Event) Validate() error {
	switch e.Kind {
	case KindCP:
		if e.DeltaCP < MinDeltaCP {
			return fmt.Errorf("cp opportunity with delta_cp %d, want >= %d", e.DeltaCP, MinDeltaCP)
		}
	case KindMate:
		if e.MateIn < 1 {
			return fmt.Errorf("mate opportunity with mate_in %d", e.MateIn)
		}
	default:
		return fmt.Errorf("unknown opportunity kind %q", e.Kind)
	}

	if e.TPlies < 1 {
		return fmt.Errorf("t_plies %d, want >= 1", e.TPlies)
	}
	if len(e.PVEvals) > len(e.PVMoves) {
		return fmt.Errorf("pv_evals has %d entries for %d pv_moves", len(e.PVEvals), len(e.PVMoves))
	}
	if len(e.PVMoves) > 0 && e.BestMoveUCI != "" && e.PVMoves[0] != e.BestMoveUCI {
		return fmt.Errorf("pv_moves[0] %q != best_move_uci %q", e.PVMoves[0], e.BestMoveUCI)
	}
	if e.FENAfter == "" {
		return fmt.Errorf("missing fen_after")
	}
	return nil
}

// IsMissed reports whether the player failed to realize the
// opportunity in the actual game.
func (e *Event) IsMissed() bool {
	return e.ConvertedActual == 0
}
