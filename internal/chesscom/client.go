// Package chesscom fetches player game archives from the public
// chess.com API.
package chesscom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// UserAgent identifies this tool to the chess.com API, which rejects
// anonymous clients.
const UserAgent = "TacticTrainer/1.0 (Contact: github.com/iklasky/tactic-trainer)"

const (
	defaultBaseURL  = "https://api.chess.com/pub"
	defaultThrottle = 250 * time.Millisecond
	defaultTimeout  = 30 * time.Second
)

// Config controls client behavior. Zero values select the published
// API with its rate-limit friendly defaults.
type Config struct {
	// BaseURL is the API root without a trailing slash.
	BaseURL string
	// Throttle is the pause between consecutive archive requests.
	Throttle time.Duration
	// Timeout bounds each individual HTTP request.
	Timeout time.Duration
}

// Client is a chess.com API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	throttle   time.Duration
	backoff    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a client, filling config defaults.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Throttle == 0 {
		cfg.Throttle = defaultThrottle
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		throttle:   cfg.Throttle,
		backoff:    time.Second,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// Player is one side of an archived game.
type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

// Game is one archived game as returned by the monthly archive
// endpoint.
type Game struct {
	URL         string `json:"url"`
	PGN         string `json:"pgn"`
	TimeControl string `json:"time_control"`
	EndTime     int64  `json:"end_time"`
	Rated       bool   `json:"rated"`
	White       Player `json:"white"`
	Black       Player `json:"black"`
}

// Archives returns the player's monthly archive URLs, oldest first.
func (c *Client) Archives(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	url := fmt.Sprintf("%s/player/%s/games/archives", c.baseURL, username)

	var payload struct {
		Archives []string `json:"archives"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, fmt.Errorf("fetch archives for %s: %w", username, err)
	}
	return payload.Archives, nil
}

// ArchiveGames returns every game in one monthly archive.
func (c *Client) ArchiveGames(ctx context.Context, archiveURL string) ([]Game, error) {
	var payload struct {
		Games []Game `json:"games"`
	}
	if err := c.getJSON(ctx, archiveURL, &payload); err != nil {
		return nil, fmt.Errorf("fetch archive %s: %w", archiveURL, err)
	}
	return payload.Games, nil
}

// RecentGames returns the player's n most recent games, newest first.
// It walks monthly archives from the newest backwards and stops as
// soon as enough games are collected; archives that fail to load are
// skipped.
func (c *Client) RecentGames(ctx context.Context, username string, n int) ([]Game, error) {
	if n <= 0 {
		return nil, fmt.Errorf("game count must be positive, got %d", n)
	}
	archives, err := c.Archives(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(archives) == 0 {
		return nil, nil
	}

	var games []Game
	for i := len(archives) - 1; i >= 0; i-- {
		if len(games) >= n {
			break
		}
		monthly, err := c.ArchiveGames(ctx, archives[i])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn().Err(err).Str("archive", archives[i]).Msg("skipping archive")
			continue
		}
		games = append(games, monthly...)

		if i > 0 && len(games) < n {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.throttle):
			}
		}
	}

	sort.SliceStable(games, func(a, b int) bool {
		return games[a].EndTime > games[b].EndTime
	})
	if len(games) > n {
		games = games[:n]
	}
	return games, nil
}

// getJSON performs a GET with retry on transient failures and decodes
// the JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	const maxRetries = 3
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * c.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// 429 and 5xx are transient under the API's rate limiting.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d from %s", resp.StatusCode, url)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("status %d from %s", resp.StatusCode, url)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode %s: %w", url, err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
