// Package replay steps through one opportunity's principal variation.
// A session is a state machine over a single integer cursor: k = -1
// shows the position right after the opponent's mistake, k = 0 the best
// reply, k >= 1 each subsequent PV move, up to the line's last ply.
package replay

import (
	"fmt"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/board"
	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

// ArrowKind distinguishes the two board annotations.
type ArrowKind int

const (
	// ArrowMistake marks the opponent's mistake; always shown.
	ArrowMistake ArrowKind = iota
	// ArrowBest marks the suggested reply; shown only before it is
	// played (k = -1).
	ArrowBest
)

// Arrow is one directional board annotation.
type Arrow struct {
	UCI  string
	Kind ArrowKind
}

// Session replays one opportunity. Created when the user selects an
// event and discarded when the selection changes; never patched
// incrementally across events.
type Session struct {
	ev  opportunity.Event
	log zerolog.Logger

	cursor      int
	pos         *pgn.GameState
	playerSign  int // +1 when the player (side to move in fen_after) is white
	baseMat     int // player-perspective material at k = -1
}

// New starts a session at k = -1 on the event's post-mistake position.
func New(ev opportunity.Event, log zerolog.Logger) (*Session, error) {
	pos, err := board.FromFEN(ev.FENAfter)
	if err != nil {
		return nil, fmt.Errorf("parse fen_after: %w", err)
	}

	sign := 1
	if !board.WhiteToMove(ev.FENAfter) {
		sign = -1
	}

	mat, err := board.Material(ev.FENAfter)
	if err != nil {
		return nil, fmt.Errorf("baseline material: %w", err)
	}

	return &Session{
		ev:         ev,
		log:        log,
		cursor:     -1,
		pos:        pos,
		playerSign: sign,
		baseMat:    mat * sign,
	}, nil
}

// Event returns the opportunity being replayed.
func (s *Session) Event() opportunity.Event { return s.ev }

// Cursor returns the current ply index k.
func (s *Session) Cursor() int { return s.cursor }

// FEN returns the current board position.
func (s *Session) FEN() string { return s.pos.ToFEN() }

// AtStart reports whether the cursor is at the initial state.
func (s *Session) AtStart() bool { return s.cursor == -1 }

// LastPly returns the terminal cursor position. A conversion line
// carries one move past t_plies, so its cursor ends at t_plies; a mate
// line stores exactly t_plies moves and ends on the mating move.
func (s *Session) LastPly() int {
	if s.ev.Kind == opportunity.KindMate && len(s.ev.PVMoves) <= s.ev.TPlies {
		return len(s.ev.PVMoves) - 1
	}
	return s.ev.TPlies
}

// AtEnd reports whether the cursor is at the terminal state.
func (s *Session) AtEnd() bool { return s.cursor >= s.LastPly() }

// moveFor returns the UCI move that enters state k.
func (s *Session) moveFor(k int) (string, error) {
	if k == 0 {
		return s.ev.BestMoveUCI, nil
	}
	if k < 0 || k >= len(s.ev.PVMoves) {
		return "", fmt.Errorf("no pv move for ply %d (have %d)", k, len(s.ev.PVMoves))
	}
	return s.ev.PVMoves[k], nil
}

// played returns the position reached by playing uci on pos, leaving
// pos untouched. Advance and Retreat both step through it, so a
// rebuilt move prefix reproduces the exact position string.
func played(pos *pgn.GameState, uci string) (*pgn.GameState, error) {
	next := board.Clone(pos)
	if next == nil {
		return nil, fmt.Errorf("clone position")
	}
	if err := board.ApplyUCI(next, uci); err != nil {
		return nil, err
	}
	return next, nil
}

// Advance applies the next PV move. A no-op at the terminal state.
// On an illegal or missing move the cursor and position are left
// untouched and the error is returned after being logged.
func (s *Session) Advance() error {
	if s.AtEnd() {
		return nil
	}

	next := s.cursor + 1
	uci, err := s.moveFor(next)
	if err != nil {
		s.log.Warn().Err(err).Int("ply", next).Msg("replay advance failed")
		return err
	}

	pos, err := played(s.pos, uci)
	if err != nil {
		s.log.Warn().Err(err).Str("move", uci).Int("ply", next).Msg("replay advance failed")
		return err
	}

	s.pos = pos
	s.cursor = next
	return nil
}

// Retreat steps the cursor back one ply. A no-op at k = -1. The
// position is rebuilt from fen_after by replaying moves 0..k rather
// than undone incrementally; the input data carries nothing needed to
// reverse castling, en passant, or promotion.
func (s *Session) Retreat() error {
	if s.AtStart() {
		return nil
	}

	target := s.cursor - 1
	pos, err := board.FromFEN(s.ev.FENAfter)
	if err != nil {
		s.log.Warn().Err(err).Msg("replay retreat failed")
		return err
	}
	for k := 0; k <= target; k++ {
		uci, err := s.moveFor(k)
		if err != nil {
			s.log.Warn().Err(err).Int("ply", k).Msg("replay retreat failed")
			return err
		}
		if pos, err = played(pos, uci); err != nil {
			s.log.Warn().Err(err).Str("move", uci).Int("ply", k).Msg("replay retreat failed")
			return err
		}
	}

	s.pos = pos
	s.cursor = target
	return nil
}

// Eval returns the centipawn evaluation for the current state, from
// the player's perspective. States past the recorded eval trace fall
// back to linear interpolation between eval_before and
// eval_before + delta_cp. The trace being shorter than t_plies is a
// known data-quality gap; the fallback is an estimate, not a
// recomputation.
func (s *Session) Eval() float64 {
	if s.cursor == -1 {
		return float64(s.ev.EvalBefore)
	}
	if s.cursor < len(s.ev.PVEvals) {
		return float64(s.ev.PVEvals[s.cursor])
	}
	return float64(s.ev.EvalBefore) +
		float64(s.ev.DeltaCP)*float64(s.cursor+1)/float64(s.ev.TPlies)
}

// EvalPawns returns Eval converted to pawn units for display.
func (s *Session) EvalPawns() float64 {
	return s.Eval() / 100
}

// MaterialDelta returns the change in material since k = -1, in pawn
// units from the player's perspective. Always 0 at k = -1.
func (s *Session) MaterialDelta() int {
	mat, err := board.Material(s.pos.ToFEN())
	if err != nil {
		s.log.Warn().Err(err).Msg("material scan failed")
		return 0
	}
	return mat*s.playerSign - s.baseMat
}

// Arrows returns the board annotations for the current state: the
// mistake always, the suggested reply only while it is still pending.
func (s *Session) Arrows() []Arrow {
	arrows := []Arrow{{UCI: s.ev.MoveUCI, Kind: ArrowMistake}}
	if s.cursor == -1 && s.ev.BestMoveUCI != "" {
		arrows = append(arrows, Arrow{UCI: s.ev.BestMoveUCI, Kind: ArrowBest})
	}
	return arrows
}
