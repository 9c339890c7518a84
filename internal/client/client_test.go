package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

func TestPlayers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/players" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "TacticTrainer/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"players":[{"username":"alice","opportunities":4,"games":2}]}`))
	}))
	defer srv.Close()

	players, err := New(srv.URL).Players(context.Background())
	if err != nil {
		t.Fatalf("Players: %v", err)
	}
	if len(players) != 1 || players[0].Username != "alice" || players[0].Opportunities != 4 {
		t.Errorf("players = %+v", players)
	}
}

func TestAnalysisQuery(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"alice","errors":[],"total_errors":0,"source":"missed-opportunities"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	// Default window stays out of the query string.
	if _, err := c.Analysis(ctx, "alice", DefaultMinElo, DefaultMaxElo); err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if gotQuery != "username=alice" {
		t.Errorf("default window query = %q", gotQuery)
	}

	// A field query with a custom window sends only the bounds.
	if _, err := c.Analysis(ctx, "", 1200, 1600); err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if !strings.Contains(gotQuery, "min_elo=1200") || !strings.Contains(gotQuery, "max_elo=1600") {
		t.Errorf("window query = %q", gotQuery)
	}
	if strings.Contains(gotQuery, "username") {
		t.Errorf("field query leaked username: %q", gotQuery)
	}

	// Touching either bound sends the whole window.
	if _, err := c.Analysis(ctx, "alice", 1200, DefaultMaxElo); err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if !strings.Contains(gotQuery, "min_elo=1200") || !strings.Contains(gotQuery, "max_elo=3000") {
		t.Errorf("half-window query = %q", gotQuery)
	}
}

func TestAnalysisDecodesResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"username": "alice",
			"errors": [{"opportunity_kind":"cp","delta_cp":150,"t_plies":2,"fen_after":"x","best_move_uci":"c4f7","pv_moves":["c4f7"]}],
			"histogram": {"delta_bins":["100-299"],"t_bins":["1-3"],"counts":[[1]]},
			"total_errors": 1,
			"missed": 1,
			"converted": 0,
			"games_analyzed": 3,
			"source": "missed-opportunities",
			"timestamp": "2026-01-01T00:00:00Z"
		}`))
	}))
	defer srv.Close()

	result, err := New(srv.URL).Analysis(context.Background(), "alice", DefaultMinElo, DefaultMaxElo)
	if err != nil {
		t.Fatalf("Analysis: %v", err)
	}
	if result.TotalEvents != 1 || result.GamesAnalyzed != 3 {
		t.Errorf("result = %+v", result)
	}
	if len(result.Events) != 1 || result.Events[0].Kind != opportunity.KindCP {
		t.Errorf("events = %+v", result.Events)
	}
	if result.Histogram.Counts[0][0] != 1 {
		t.Errorf("histogram = %+v", result.Histogram)
	}
}

func TestGames(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("username"); got != "alice" {
			t.Errorf("username param = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":"alice","total_games":1,"games":[{"url":"u1","white":"alice","black":"bob","result":"1-0"}]}`))
	}))
	defer srv.Close()

	games, err := New(srv.URL).Games(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Games: %v", err)
	}
	if len(games) != 1 || games[0].URL != "u1" {
		t.Errorf("games = %+v", games)
	}

	if _, err := New(srv.URL).Games(context.Background(), ""); err == nil {
		t.Error("expected error for empty username")
	}
}

func TestErrorEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid min_elo"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Analysis(context.Background(), "alice", 10, 20)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid min_elo") {
		t.Errorf("error = %v, want the server message", err)
	}
}

func TestErrorWithoutEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL).Health(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %v, want status code", err)
	}
}

func TestHealthUnhealthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"degraded"}`))
	}))
	defer srv.Close()

	if err := New(srv.URL).Health(context.Background()); err == nil {
		t.Error("expected error for degraded status")
	}
}
