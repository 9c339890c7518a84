// Package analyze detects missed opportunities in chess games. It
// replays each game, asks the engine how much an opponent move gave
// away, and walks the engine's line to see how many plies converting
// the gift would have taken.
package analyze

import (
	"fmt"
	"strings"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/board"
	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

// Config tunes opportunity detection.
type Config struct {
	DeltaCutoffCP     int // minimum eval swing, from the player's side, to count as a gift
	MaxHorizonPlies   int // how far a line is walked before giving up
	MaterialHoldPlies int // plies material must stay above target to count as converted
}

// WithDefaults fills unset tuning knobs with the standard values.
func (c Config) WithDefaults() Config {
	if c.DeltaCutoffCP == 0 {
		c.DeltaCutoffCP = opportunity.MinDeltaCP
	}
	if c.MaxHorizonPlies == 0 {
		c.MaxHorizonPlies = 40
	}
	if c.MaterialHoldPlies == 0 {
		c.MaterialHoldPlies = 3
	}
	return c
}

// Analyzer finds the opportunities one player was handed in a game.
type Analyzer struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Analyzer {
	return &Analyzer{cfg: cfg.WithDefaults(), log: log}
}

// trace is the replayed actual game: every position plus per-move
// notation, computed once so the detection loop and the actual-outcome
// checks never replay moves twice.
type trace struct {
	fens []string // len(moves)+1 entries
	mats []int    // white-relative material per position
	sans []string // one per move
	ucis []string // one per move

	finalTerminal bool // last position has no legal moves
	finalMate     bool // last position is checkmate
}

func buildTrace(game *pgn.Game) (*trace, error) {
	pos, err := startingPosition(game.Tags)
	if err != nil {
		return nil, err
	}

	tr := &trace{
		fens: make([]string, 0, len(game.Moves)+1),
		mats: make([]int, 0, len(game.Moves)+1),
		sans: make([]string, 0, len(game.Moves)),
		ucis: make([]string, 0, len(game.Moves)),
	}

	fen := pos.ToFEN()
	mat, err := board.Material(fen)
	if err != nil {
		return nil, fmt.Errorf("starting material: %w", err)
	}
	tr.fens = append(tr.fens, fen)
	tr.mats = append(tr.mats, mat)

	for i, mv := range game.Moves {
		tr.sans = append(tr.sans, board.SAN(pos, mv))
		tr.ucis = append(tr.ucis, board.FormatUCI(mv))
		if err := pgn.ApplyMove(pos, mv); err != nil {
			return nil, fmt.Errorf("replay move %d: %w", i, err)
		}
		fen = pos.ToFEN()
		mat, err = board.Material(fen)
		if err != nil {
			return nil, fmt.Errorf("material after move %d: %w", i, err)
		}
		tr.fens = append(tr.fens, fen)
		tr.mats = append(tr.mats, mat)
	}

	if len(pgn.GenerateLegalMoves(pos)) == 0 {
		tr.finalTerminal = true
		tr.finalMate = pos.IsInCheck()
	}
	return tr, nil
}

func startingPosition(tags map[string]string) (*pgn.GameState, error) {
	if fen := tags["FEN"]; fen != "" {
		pos, err := board.FromFEN(fen)
		if err != nil {
			return nil, fmt.Errorf("custom start position: %w", err)
		}
		return pos, nil
	}
	return pgn.NewStartingPosition(), nil
}

// playerSide reports which color the player held; ok is false when the
// username matches neither side. Comparison is case-insensitive, the
// way chess.com treats usernames.
func playerSide(tags map[string]string, username string) (white, ok bool) {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" {
		return false, false
	}
	switch u {
	case strings.ToLower(tags["White"]):
		return true, true
	case strings.ToLower(tags["Black"]):
		return false, true
	}
	return false, false
}

func povSign(playerIsWhite bool) int {
	if playerIsWhite {
		return 1
	}
	return -1
}

// AnalyzeGame replays one game and returns every opportunity the
// opponent handed to the player, converted or missed. Games the player
// did not play, and variant games, yield no events.
func (a *Analyzer) AnalyzeGame(eval Evaluator, game *pgn.Game, username string) ([]opportunity.Event, error) {
	if game.Tags["Variant"] != "" && game.Tags["Variant"] != "Standard" {
		return nil, nil
	}
	playerIsWhite, ok := playerSide(game.Tags, username)
	if !ok {
		return nil, nil
	}
	sign := povSign(playerIsWhite)
	color := "black"
	if playerIsWhite {
		color = "white"
	}

	tr, err := buildTrace(game)
	if err != nil {
		return nil, err
	}

	meta := MetaFromTags(game.Tags)

	var events []opportunity.Event
	for i := range game.Moves {
		// Opportunities arise from the opponent's moves only.
		if board.WhiteToMove(tr.fens[i]) == playerIsWhite {
			continue
		}
		// An opponent move that ends the game leaves nothing to convert.
		if i == len(game.Moves)-1 && tr.finalTerminal {
			continue
		}

		evalBefore, err := eval.Evaluate(tr.fens[i])
		if err != nil {
			return nil, fmt.Errorf("eval before ply %d: %w", i, err)
		}
		evalAfter, err := eval.Evaluate(tr.fens[i+1])
		if err != nil {
			return nil, fmt.Errorf("eval after ply %d: %w", i, err)
		}

		var ev opportunity.Event
		var found bool
		if evalAfter.IsMate && evalAfter.Mate*sign > 0 {
			ev, found, err = a.mateEvent(eval, tr, i, sign, evalBefore, evalAfter)
		} else if !evalBefore.IsMate && !evalAfter.IsMate {
			delta := (evalAfter.CP - evalBefore.CP) * sign
			if delta >= a.cfg.DeltaCutoffCP {
				ev, found, err = a.cpEvent(eval, tr, i, sign, delta, evalBefore, evalAfter)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("ply %d (%s): %w", i, tr.sans[i], err)
		}
		if !found {
			continue
		}

		ev.PlyIndex = i
		ev.MoveSAN = tr.sans[i]
		ev.MoveUCI = tr.ucis[i]
		ev.FEN = tr.fens[i]
		ev.FENAfter = tr.fens[i+1]
		ev.BestMoveUCI, ev.BestMoveSAN = bestReply(tr.fens[i+1], ev.PVMoves)
		ev.GameURL = meta.GameURL
		ev.PlayerColor = color
		ev.TimeControl = meta.TimeControl
		events = append(events, ev)
	}
	return events, nil
}

// mateEvent builds the event for a forced-mate opportunity. found is
// false when the engine's line does not reach mate within the horizon.
func (a *Analyzer) mateEvent(eval Evaluator, tr *trace, i, sign int, evalBefore, evalAfter Score) (opportunity.Event, bool, error) {
	t, pvMoves, pvEvals, reached, err := a.mateLine(eval, tr.fens[i+1], evalAfter, sign)
	if err != nil || !reached {
		return opportunity.Event{}, false, err
	}

	converted, tActual := actualMate(tr, i, sign, a.cfg.MaxHorizonPlies)

	evalBeforeCP := 0
	if !evalBefore.IsMate {
		evalBeforeCP = evalBefore.CP * sign
	}
	return opportunity.Event{
		Kind:            opportunity.KindMate,
		MateIn:          evalAfter.Mate * sign,
		TPlies:          t,
		ConvertedActual: converted,
		TPliesActual:    tActual,
		PVMoves:         pvMoves,
		PVEvals:         pvEvals,
		EvalBefore:      evalBeforeCP,
	}, true, nil
}

// mateLine walks the engine's best moves from startFEN until checkmate.
// Evals along the line are recorded from the player's side; mate-kind
// scores record as 0. reached is false when no mate arrives within the
// horizon or the line fizzles into stalemate.
func (a *Analyzer) mateLine(eval Evaluator, startFEN string, start Score, sign int) (t int, pvMoves []string, pvEvals []int, reached bool, err error) {
	pos, err := board.FromFEN(startFEN)
	if err != nil {
		return 0, nil, nil, false, fmt.Errorf("parse position: %w", err)
	}

	cur := start
	for ply := 1; ply <= a.cfg.MaxHorizonPlies; ply++ {
		if cur.BestMove == "" {
			return 0, nil, nil, false, nil
		}
		if err := board.ApplyUCI(pos, cur.BestMove); err != nil {
			return 0, nil, nil, false, fmt.Errorf("apply engine move %s: %w", cur.BestMove, err)
		}
		pvMoves = append(pvMoves, cur.BestMove)

		if len(pgn.GenerateLegalMoves(pos)) == 0 {
			pvEvals = append(pvEvals, 0)
			if pos.IsInCheck() {
				return ply, pvMoves, pvEvals, true, nil
			}
			return 0, nil, nil, false, nil
		}

		next, err := eval.Evaluate(pos.ToFEN())
		if err != nil {
			return 0, nil, nil, false, err
		}
		if next.IsMate {
			pvEvals = append(pvEvals, 0)
		} else {
			pvEvals = append(pvEvals, next.CP*sign)
		}
		cur = next
	}
	return 0, nil, nil, false, nil
}

// cpEvent builds the event for a material-swing opportunity. found is
// false when the engine's line never holds the material edge long
// enough within the horizon.
func (a *Analyzer) cpEvent(eval Evaluator, tr *trace, i, sign, delta int, evalBefore, evalAfter Score) (opportunity.Event, bool, error) {
	targetPawns := delta / 100
	t, pvMoves, pvEvals, reached, err := a.conversionLine(eval, tr.fens[i+1], tr.mats[i+1], targetPawns, sign, evalAfter)
	if err != nil || !reached {
		return opportunity.Event{}, false, err
	}

	converted, tActual := actualConversion(tr, i, targetPawns, sign, a.cfg.MaxHorizonPlies, a.cfg.MaterialHoldPlies)

	return opportunity.Event{
		Kind:            opportunity.KindCP,
		DeltaCP:         delta,
		TargetPawns:     targetPawns,
		TPlies:          t,
		ConvertedActual: converted,
		TPliesActual:    tActual,
		PVMoves:         pvMoves,
		PVEvals:         pvEvals,
		EvalBefore:      evalBefore.CP * sign,
	}, true, nil
}

// conversionLine walks the engine's best moves from startFEN until the
// material edge reaches targetPawns and holds for MaterialHoldPlies
// consecutive plies. It returns the first crossing ply together with
// the whole walked line, hold plies included, so a replay can step
// past the crossing. The hold may complete on a game-ending ply, but a
// line that ends before the hold completes does not convert.
func (a *Analyzer) conversionLine(eval Evaluator, startFEN string, baseMat, targetPawns, sign int, start Score) (t int, pvMoves []string, pvEvals []int, reached bool, err error) {
	pos, err := board.FromFEN(startFEN)
	if err != nil {
		return 0, nil, nil, false, fmt.Errorf("parse position: %w", err)
	}

	cur := start
	sustained := 0
	firstCross := 0
	for ply := 1; ply <= a.cfg.MaxHorizonPlies; ply++ {
		if cur.BestMove == "" {
			return 0, nil, nil, false, nil
		}
		if err := board.ApplyUCI(pos, cur.BestMove); err != nil {
			return 0, nil, nil, false, fmt.Errorf("apply engine move %s: %w", cur.BestMove, err)
		}
		pvMoves = append(pvMoves, cur.BestMove)

		fen := pos.ToFEN()
		terminal := len(pgn.GenerateLegalMoves(pos)) == 0

		var next Score
		if terminal {
			pvEvals = append(pvEvals, 0)
		} else {
			next, err = eval.Evaluate(fen)
			if err != nil {
				return 0, nil, nil, false, err
			}
			if next.IsMate {
				pvEvals = append(pvEvals, 0)
			} else {
				pvEvals = append(pvEvals, next.CP*sign)
			}
		}

		mat, err := board.Material(fen)
		if err != nil {
			return 0, nil, nil, false, err
		}
		if (mat-baseMat)*sign >= targetPawns {
			if firstCross == 0 {
				firstCross = ply
			}
			sustained++
			if sustained >= a.cfg.MaterialHoldPlies {
				return firstCross, pvMoves, pvEvals, true, nil
			}
		} else {
			firstCross = 0
			sustained = 0
		}

		if terminal {
			return 0, nil, nil, false, nil
		}
		cur = next
	}
	return 0, nil, nil, false, nil
}

// actualMate reports whether the player delivered checkmate in the real
// game within horizon plies of the opportunity, and how many plies it
// took.
func actualMate(tr *trace, i, sign int, horizon int) (converted, tActual int) {
	if !tr.finalMate {
		return 0, 0
	}
	last := len(tr.fens) - 1
	plies := last - (i + 1)
	if plies < 1 || plies > horizon {
		return 0, 0
	}
	// The winner is whoever moved into the mated position.
	moverIsWhite := board.WhiteToMove(tr.fens[last-1])
	if povSign(moverIsWhite) != sign {
		return 0, 0
	}
	return 1, plies
}

// actualConversion applies the same crossing-and-hold rule to the moves
// actually played after the opportunity.
func actualConversion(tr *trace, i, targetPawns, sign, horizon, hold int) (converted, tActual int) {
	base := tr.mats[i+1]
	sustained := 0
	firstCross := 0
	for ply := 1; ply <= horizon && i+1+ply < len(tr.fens); ply++ {
		if (tr.mats[i+1+ply]-base)*sign >= targetPawns {
			if firstCross == 0 {
				firstCross = ply
			}
			sustained++
			if sustained >= hold {
				return 1, firstCross
			}
		} else {
			firstCross = 0
			sustained = 0
		}
	}
	return 0, 0
}

// bestReply resolves the SAN of the line's first move, falling back to
// the raw UCI when the move does not resolve against the position.
func bestReply(fenAfter string, pvMoves []string) (uciMove, san string) {
	if len(pvMoves) == 0 {
		return "", ""
	}
	uciMove = pvMoves[0]
	san = uciMove
	if pos, err := board.FromFEN(fenAfter); err == nil {
		if mv, err := board.FindUCI(pos, uciMove); err == nil {
			san = board.SAN(pos, mv)
		}
	}
	return uciMove, san
}
