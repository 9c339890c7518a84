package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

// GameRecord is one analyzed game as persisted, keyed by
// (username, game_url). The same game may appear once per player when
// both participants are tracked.
type GameRecord struct {
	Username    string
	GameURL     string
	Opponent    string
	WhitePlayer string
	BlackPlayer string
	PlayerColor string
	PlayerElo   int
	OpponentElo int
	TimeControl string
	GameResult  string
	ECO         string
	Opening     string
	EndTime     int64
	RunID       string
}

// UpsertGame inserts a game row, replacing any previous analysis of
// the same game for the same player.
func (s *Store) UpsertGame(ctx context.Context, g GameRecord) error {
	if strings.TrimSpace(g.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(g.GameURL) == "" {
		return fmt.Errorf("game url is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO games (
		   username, game_url, opponent, white_player, black_player,
		   player_color, player_elo, opponent_elo, time_control,
		   game_result, eco, opening, end_time, run_id, analyzed_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (username, game_url) DO UPDATE SET
		   opponent = excluded.opponent,
		   white_player = excluded.white_player,
		   black_player = excluded.black_player,
		   player_color = excluded.player_color,
		   player_elo = excluded.player_elo,
		   opponent_elo = excluded.opponent_elo,
		   time_control = excluded.time_control,
		   game_result = excluded.game_result,
		   eco = excluded.eco,
		   opening = excluded.opening,
		   end_time = excluded.end_time,
		   run_id = excluded.run_id,
		   analyzed_at = excluded.analyzed_at`,
		g.Username, g.GameURL, g.Opponent, g.WhitePlayer, g.BlackPlayer,
		g.PlayerColor, g.PlayerElo, g.OpponentElo, g.TimeControl,
		g.GameResult, g.ECO, g.Opening, g.EndTime, g.RunID, nowMillis(),
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	s.bumpGeneration()
	return nil
}

// HasGame reports whether a game has already been analyzed for a
// player, so re-runs can skip engine work.
func (s *Store) HasGame(ctx context.Context, username, gameURL string) (bool, error) {
	var found int
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM games WHERE username = ? AND game_url = ?`,
		username, gameURL)
	err := row.Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check game: %w", err)
	}
	return true, nil
}

// Players lists every tracked player with game and opportunity counts,
// ordered by username.
func (s *Store) Players(ctx context.Context) ([]opportunity.PlayerSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT g.username,
		        (SELECT COUNT(*) FROM opportunities o WHERE o.username = g.username),
		        COUNT(*)
		   FROM games g
		  GROUP BY g.username
		  ORDER BY g.username ASC`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := []opportunity.PlayerSummary{}
	for rows.Next() {
		var p opportunity.PlayerSummary
		if err := rows.Scan(&p.Username, &p.Opportunities, &p.Games); err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// ListGames returns a player's analyzed games, most recent first.
// A limit of 0 or less returns everything.
func (s *Store) ListGames(ctx context.Context, username string, limit int) ([]opportunity.GameInfo, error) {
	query := `SELECT game_url, white_player, black_player, game_result,
	                 time_control, end_time, eco, opening
	            FROM games
	           WHERE username = ?
	           ORDER BY end_time DESC, game_url ASC`
	args := []any{username}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	games := []opportunity.GameInfo{}
	for rows.Next() {
		var g opportunity.GameInfo
		if err := rows.Scan(&g.URL, &g.White, &g.Black, &g.Result,
			&g.TimeControl, &g.EndTime, &g.ECO, &g.Opening); err != nil {
			return nil, fmt.Errorf("list games: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// GamesAnalyzed counts games within the rating window. An empty
// username counts across all players.
func (s *Store) GamesAnalyzed(ctx context.Context, username string, minElo, maxElo int) (int, error) {
	query := `SELECT COUNT(*) FROM games WHERE player_elo >= ? AND player_elo <= ?`
	args := []any{minElo, maxElo}
	if username != "" {
		query += ` AND username = ?`
		args = append(args, username)
	}

	var n int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}
