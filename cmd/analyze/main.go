package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/analyze"
	"github.com/iklasky/tactic-trainer/internal/config"
	"github.com/iklasky/tactic-trainer/internal/logx"
	"github.com/iklasky/tactic-trainer/internal/store"
)

func splitUsernames(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func main() {
	logger := logx.NewLogger()

	env, err := config.ParseEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("read environment")
	}

	var (
		dbPath        = flag.String("db", env.DBPath, "sqlite database path")
		spoolDir      = flag.String("spool", env.SpoolDir, "spool directory of fetched PGN files")
		stockfishPath = flag.String("stockfish", env.Stockfish, "path to the Stockfish executable")
		depth         = flag.Int("depth", env.Depth, "Stockfish search depth per position")
		workers       = flag.Int("workers", env.Workers, "analysis workers, one engine process each")
		deltaCutoff   = flag.Int("delta-cutoff", 0, "minimum eval swing in centipawns (0 = default 100)")
		horizon       = flag.Int("horizon", 0, "conversion search horizon in plies (0 = default 40)")
		usernames     = flag.String("usernames", "", "comma-separated players whose spool files to analyze (empty = all)")
		minElo        = flag.Int("min-elo", 0, "drop games below this player rating")
		maxElo        = flag.Int("max-elo", 0, "drop games above this player rating (0 = no bound)")
		once          = flag.Bool("once", false, "process the spool once, drain the queue, and exit")
	)
	flag.Parse()

	if *spoolDir == "" {
		fmt.Fprintln(os.Stderr, "Usage: analyze -spool <dir> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if lvl, err := zerolog.ParseLevel(env.LogLevel); err != nil {
		logger.Warn().Str("level", env.LogLevel).Msg("unknown log level, keeping default")
	} else {
		logger = logger.Level(lvl)
	}

	st, err := store.Open(*dbPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("db", *dbPath).Msg("open store")
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := analyze.NewPool(analyze.PoolConfig{
		Engine: analyze.EngineConfig{
			StockfishPath: *stockfishPath,
			Depth:         *depth,
			HashMB:        env.HashMB,
			Nice:          env.EngineNice,
		},
		Analysis: analyze.Config{
			DeltaCutoffCP:   *deltaCutoff,
			MaxHorizonPlies: *horizon,
		},
		NumWorkers: *workers,
		QueueSize:  env.QueueSize,
		Logger:     logger,
	}, st)

	watcher, err := analyze.NewWatcher(analyze.WatcherConfig{
		SpoolDir:     *spoolDir,
		PollInterval: env.PollInterval,
		Logger:       logger,
		Usernames:    splitUsernames(*usernames),
		MinElo:       *minElo,
		MaxElo:       *maxElo,
	}, st, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("create spool watcher")
	}

	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		if err := pool.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("analysis pool stopped")
		}
	}()

	if *once {
		if err := watcher.ProcessOnce(ctx); err != nil {
			logger.Fatal().Err(err).Msg("spool scan failed")
		}
		if err := waitIdle(ctx, pool); err != nil {
			logger.Warn().Msg("interrupted before the queue drained")
		}
		stop()
		<-poolDone

		status := pool.Status()
		logger.Info().
			Int64("games", status.GamesAnalyzed).
			Int64("failed", status.GamesFailed).
			Int64("events", status.EventsFound).
			Int64("missed", status.MissedFound).
			Msg("batch analysis complete")
		return
	}

	go func() {
		if err := watcher.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("spool watcher stopped")
		}
	}()

	<-ctx.Done()
	<-poolDone
	logger.Info().Msg("shutdown complete")
}

// waitIdle blocks until the pool has no queued or in-flight games.
func waitIdle(ctx context.Context, pool *analyze.Pool) error {
	for !pool.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil
}
