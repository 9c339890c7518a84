package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/analyze"
	"github.com/iklasky/tactic-trainer/internal/config"
	"github.com/iklasky/tactic-trainer/internal/httpapi"
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
		// Server
		addr   = flag.String("addr", env.Addr, "listen address")
		dbPath = flag.String("db", env.DBPath, "sqlite database path")

		// Engine
		stockfishPath = flag.String("stockfish", env.Stockfish, "path to the Stockfish executable")
		depth         = flag.Int("depth", env.Depth, "Stockfish search depth per position")

		// Detection
		deltaCutoff = flag.Int("delta-cutoff", 0, "minimum eval swing in centipawns (0 = default 100)")
		horizon     = flag.Int("horizon", 0, "conversion search horizon in plies (0 = default 40)")

		// Pipeline
		spoolDir  = flag.String("spool", env.SpoolDir, "spool directory to watch for fetched PGN files (empty = serve stored results only)")
		workers   = flag.Int("workers", env.Workers, "analysis workers, one engine process each")
		usernames = flag.String("usernames", "", "comma-separated players whose spool files to analyze (empty = all)")
		minElo    = flag.Int("min-elo", 0, "drop games below this player rating")
		maxElo    = flag.Int("max-elo", 0, "drop games above this player rating (0 = no bound)")
	)
	flag.Parse()

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

	analysisCfg := analyze.Config{
		DeltaCutoffCP:   *deltaCutoff,
		MaxHorizonPlies: *horizon,
	}

	// The pipeline runs only when there is a spool directory to feed it.
	var pool *analyze.Pool
	if *spoolDir != "" {
		pool = analyze.NewPool(analyze.PoolConfig{
			Engine: analyze.EngineConfig{
				StockfishPath: *stockfishPath,
				Depth:         *depth,
				HashMB:        env.HashMB,
				Nice:          env.EngineNice,
			},
			Analysis:   analysisCfg,
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

		go func() {
			if err := pool.Run(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("analysis pool stopped")
			}
		}()
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("spool watcher stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr: *addr,
		Handler: httpapi.NewRouter(logger, st, httpapi.RouterConfig{
			Pool:     pool,
			Analysis: analysisCfg,
			Depth:    *depth,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("api server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
}
