package store

import (
	"context"
	"fmt"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

const eventColumns = `kind, delta_cp, mate_in, target_pawns, t_plies,
	converted_actual, t_plies_actual, ply_index, move_san, move_uci,
	best_move_san, best_move_uci, fen_before, fen_after, pv_moves,
	pv_evals, eval_before, game_url, player_color, time_control`

// ReplaceGameEvents swaps the stored opportunity set of one game
// atomically. Re-analyzing a game never leaves rows from an older run
// behind.
func (s *Store) ReplaceGameEvents(ctx context.Context, username string, gameURL string, playerElo int, runID string, events []opportunity.Event) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if gameURL == "" {
		return fmt.Errorf("game url is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace events: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM opportunities WHERE username = ? AND game_url = ?`,
		username, gameURL); err != nil {
		return fmt.Errorf("clear game events: %w", err)
	}

	now := nowMillis()
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO opportunities (
			   username, game_url, event_index, kind, delta_cp, mate_in,
			   target_pawns, t_plies, converted_actual, t_plies_actual,
			   ply_index, move_san, move_uci, best_move_san, best_move_uci,
			   fen_before, fen_after, pv_moves, pv_evals, eval_before,
			   player_color, player_elo, time_control, run_id, created_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			username, gameURL, i, string(ev.Kind), ev.DeltaCP, ev.MateIn,
			ev.TargetPawns, ev.TPlies, ev.ConvertedActual, ev.TPliesActual,
			ev.PlyIndex, ev.MoveSAN, ev.MoveUCI, ev.BestMoveSAN, ev.BestMoveUCI,
			ev.FEN, ev.FENAfter, opportunity.JoinMoves(ev.PVMoves),
			opportunity.JoinEvals(ev.PVEvals), ev.EvalBefore,
			ev.PlayerColor, playerElo, ev.TimeControl, runID, now,
		); err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace events: %w", err)
	}
	s.bumpGeneration()
	return nil
}

// EventsFor returns the opportunities of one player, or of every
// player when username is empty, restricted to games where the
// player's rating fell inside [minElo, maxElo]. Ordering is stable
// across calls.
func (s *Store) EventsFor(ctx context.Context, username string, minElo, maxElo int) ([]opportunity.Event, error) {
	query := `SELECT ` + eventColumns + `
	   FROM opportunities
	  WHERE player_elo >= ? AND player_elo <= ?`
	args := []any{minElo, maxElo}
	if username != "" {
		query += ` AND username = ?`
		args = append(args, username)
	}
	query += ` ORDER BY username ASC, game_url ASC, event_index ASC`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []opportunity.Event{}
	for rows.Next() {
		var ev opportunity.Event
		var kind, pvMoves, pvEvals string
		if err := rows.Scan(
			&kind, &ev.DeltaCP, &ev.MateIn, &ev.TargetPawns, &ev.TPlies,
			&ev.ConvertedActual, &ev.TPliesActual, &ev.PlyIndex,
			&ev.MoveSAN, &ev.MoveUCI, &ev.BestMoveSAN, &ev.BestMoveUCI,
			&ev.FEN, &ev.FENAfter, &pvMoves, &pvEvals, &ev.EvalBefore,
			&ev.GameURL, &ev.PlayerColor, &ev.TimeControl,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = opportunity.Kind(kind)
		ev.PVMoves = opportunity.SplitMoves(pvMoves)
		evals, err := opportunity.SplitEvals(pvEvals)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.GameURL, err)
		}
		ev.PVEvals = evals
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}
