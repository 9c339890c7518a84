// Package client is a typed HTTP client for the tactic-trainer API,
// used by the terminal trainer.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

const userAgent = "TacticTrainer/1.0 (Contact: github.com/iklasky/tactic-trainer)"

// Rating window bounds that the server assumes when the query omits
// them.
const (
	DefaultMinElo = 0
	DefaultMaxElo = 3000
)

const defaultTimeout = 30 * time.Second

// Client talks to a running tactic-trainer API server. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Health verifies the API is reachable and reports healthy.
func (c *Client) Health(ctx context.Context) error {
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/api/health", nil, &payload); err != nil {
		return err
	}
	if payload.Status != "healthy" {
		return fmt.Errorf("api reported status %q", payload.Status)
	}
	return nil
}

// Players lists every tracked player.
func (c *Client) Players(ctx context.Context) ([]opportunity.PlayerSummary, error) {
	var payload struct {
		Players []opportunity.PlayerSummary `json:"players"`
	}
	if err := c.getJSON(ctx, "/api/players", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Players, nil
}

// Analysis fetches the opportunity events and histogram for one player,
// or for every player inside the rating window when username is empty.
// Default window bounds are left out of the query.
func (c *Client) Analysis(ctx context.Context, username string, minElo, maxElo int) (*opportunity.AnalysisResult, error) {
	q := url.Values{}
	if username != "" {
		q.Set("username", username)
	}
	if minElo != DefaultMinElo || maxElo != DefaultMaxElo {
		q.Set("min_elo", strconv.Itoa(minElo))
		q.Set("max_elo", strconv.Itoa(maxElo))
	}

	var result opportunity.AnalysisResult
	if err := c.getJSON(ctx, "/api/analysis", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Games lists a player's analyzed games, most recent first.
func (c *Client) Games(ctx context.Context, username string) ([]opportunity.GameInfo, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	q := url.Values{}
	q.Set("username", username)

	var payload struct {
		Games []opportunity.GameInfo `json:"games"`
	}
	if err := c.getJSON(ctx, "/api/games", q, &payload); err != nil {
		return nil, err
	}
	return payload.Games, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// apiError surfaces the server's error message when it sent one.
func apiError(resp *http.Response, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return fmt.Errorf("%s: %s (status %d)", path, envelope.Error, resp.StatusCode)
	}
	return fmt.Errorf("%s: status %d", path, resp.StatusCode)
}
