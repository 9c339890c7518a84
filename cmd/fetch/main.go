package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/chesscom"
	"github.com/iklasky/tactic-trainer/internal/config"
	"github.com/iklasky/tactic-trainer/internal/logx"
)

func main() {
	logger := logx.NewLogger()

	env, err := config.ParseEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("read environment")
	}
	defaultSpool := env.SpoolDir
	if defaultSpool == "" {
		defaultSpool = "spool"
	}

	var (
		spoolDir = flag.String("spool", defaultSpool, "directory to write fetched PGN files into")
		numGames = flag.Int("games", 100, "most recent games to fetch per player")
		all      = flag.Bool("all", false, "fetch every archived game instead of the most recent ones")
	)
	flag.Parse()

	usernames := flag.Args()
	if len(usernames) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: fetch [options] <username> [username...]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := os.MkdirAll(*spoolDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("spool", *spoolDir).Msg("create spool directory")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := chesscom.NewClient(chesscom.Config{}, logger)

	// One run id for the whole invocation; every spool file written by
	// this run carries it, and analysis results are grouped under it.
	runID := uuid.NewString()

	failures := 0
	for _, username := range usernames {
		games, err := fetchPlayer(ctx, client, logger, username, *numGames, *all)
		if err != nil {
			logger.Error().Err(err).Str("username", username).Msg("fetch failed")
			failures++
			continue
		}
		if len(games) == 0 {
			logger.Warn().Str("username", username).Msg("no games found")
			continue
		}

		path, written, err := writeSpoolFile(*spoolDir, username, runID, games)
		if err != nil {
			logger.Error().Err(err).Str("username", username).Msg("write spool file")
			failures++
			continue
		}
		logger.Info().
			Str("username", username).
			Int("games", written).
			Str("file", path).
			Msg("spooled games")
	}

	if failures > 0 {
		os.Exit(1)
	}
}

func fetchPlayer(ctx context.Context, client *chesscom.Client, logger zerolog.Logger, username string, n int, all bool) ([]chesscom.Game, error) {
	if !all {
		return client.RecentGames(ctx, username, n)
	}

	archives, err := client.Archives(ctx, username)
	if err != nil {
		return nil, err
	}
	var games []chesscom.Game
	for _, archiveURL := range archives {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		batch, err := client.ArchiveGames(ctx, archiveURL)
		if err != nil {
			logger.Warn().Err(err).Str("archive", archiveURL).Msg("skipping archive")
			continue
		}
		games = append(games, batch...)
	}
	return games, nil
}

// writeSpoolFile writes the games as one zstd-compressed PGN file named
// <username>_<runID>.pgn.zst. The file appears atomically so the spool
// watcher never sees a partial write. Games with an empty PGN body
// (aborted before the first move) are dropped.
func writeSpoolFile(dir, username, runID string, games []chesscom.Game) (string, int, error) {
	name := strings.ToLower(username) + "_" + runID + ".pgn.zst"
	final := filepath.Join(dir, name)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", tmp, err)
	}
	defer os.Remove(tmp)

	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return "", 0, fmt.Errorf("zstd writer: %w", err)
	}

	written := 0
	for _, game := range games {
		text := strings.TrimSpace(game.PGN)
		if text == "" {
			continue
		}
		if written > 0 {
			if _, err := io.WriteString(zw, "\n"); err != nil {
				zw.Close()
				f.Close()
				return "", 0, fmt.Errorf("write %s: %w", tmp, err)
			}
		}
		if _, err := io.WriteString(zw, text+"\n"); err != nil {
			zw.Close()
			f.Close()
			return "", 0, fmt.Errorf("write %s: %w", tmp, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("finish %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", 0, fmt.Errorf("publish %s: %w", final, err)
	}
	return final, written, nil
}
