package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/client"
	"github.com/iklasky/tactic-trainer/internal/config"
	"github.com/iklasky/tactic-trainer/internal/hist"
	"github.com/iklasky/tactic-trainer/internal/ui"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml (default: tactic-trainer/config.yaml under the user config dir)")
		apiURL     = flag.String("api", "", "api base url (overrides the config file)")
		player     = flag.String("player", "", "open this player's grid directly, skipping the picker")
		minElo     = flag.Int("min-elo", -1, "rating window floor (overrides the config file)")
		maxElo     = flag.Int("max-elo", -1, "rating window ceiling (overrides the config file)")
		view       = flag.String("view", "", "initial grid view: count, percentage or diff (overrides the config file)")
		logPath    = flag.String("log", "", "append debug logs to this file (stdout belongs to the interface)")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(dir, "tactic-trainer", "config.yaml")
		}
	}
	cfg, err := config.LoadTrainer(path)
	if err != nil {
		fatalf("%v", err)
	}

	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *player != "" {
		cfg.Username = *player
	}
	if *minElo >= 0 {
		cfg.MinElo = *minElo
	}
	if *maxElo >= 0 {
		cfg.MaxElo = *maxElo
	}
	if *view != "" {
		cfg.ViewMode = *view
	}

	mode, err := hist.ParseViewMode(cfg.ViewMode)
	if err != nil {
		fatalf("%v", err)
	}

	logger := zerolog.Nop()
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fatalf("open log file: %v", err)
		}
		defer f.Close()
		logger = zerolog.New(f).With().Timestamp().Logger()
	}

	api := client.New(cfg.APIURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = api.Health(ctx)
	cancel()
	if err != nil {
		fatalf("cannot reach the api at %s: %v\n\nstart it first, e.g.:\n  api -db trainer.db", cfg.APIURL, err)
	}

	filters := ui.Filters{
		Player: cfg.Username,
		MinElo: cfg.MinElo,
		MaxElo: cfg.MaxElo,
		Mode:   mode,
	}

	program := tea.NewProgram(ui.New(api, filters, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fatalf("trainer exited with an error: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
