package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"
)

// gameIndex answers whether a game was already analyzed for a player.
type gameIndex interface {
	HasGame(ctx context.Context, username, gameURL string) (bool, error)
}

// jobSink receives analysis jobs, usually the pool.
type jobSink interface {
	Enqueue(job Job) (added, dup bool)
	Contains(job Job) bool
}

// WatcherConfig configures the spool directory watcher.
type WatcherConfig struct {
	SpoolDir     string        // directory the fetcher drops PGN files into
	ProcessedDir string        // defaults to SpoolDir/processed
	PollInterval time.Duration // defaults to 10s
	Logger       zerolog.Logger

	// Usernames restricts which players' spool files get analyzed;
	// empty tracks everyone.
	Usernames []string
	// MinElo and MaxElo drop games whose player rating falls outside
	// the window. MaxElo 0 means no upper bound.
	MinElo int
	MaxElo int
}

// Watcher polls a spool directory for PGN files named
// <username>_<runID>.pgn (optionally .zst) and feeds their games to the
// analysis pool. Files move to the processed directory once every game
// in them is queued or known.
type Watcher struct {
	cfg     WatcherConfig
	st      gameIndex
	sink    jobSink
	tracked map[string]bool
	log     zerolog.Logger
}

// NewWatcher builds a watcher. Returns nil with no error when SpoolDir
// is empty; watching is optional.
func NewWatcher(cfg WatcherConfig, st gameIndex, sink jobSink) (*Watcher, error) {
	if cfg.SpoolDir == "" {
		return nil, nil
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = filepath.Join(cfg.SpoolDir, "processed")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}

	if err := os.MkdirAll(cfg.SpoolDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ProcessedDir, 0o755); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}

	tracked := make(map[string]bool, len(cfg.Usernames))
	for _, u := range cfg.Usernames {
		if u = strings.TrimSpace(u); u != "" {
			tracked[strings.ToLower(u)] = true
		}
	}

	return &Watcher{
		cfg:     cfg,
		st:      st,
		sink:    sink,
		tracked: tracked,
		log:     cfg.Logger.With().Str("component", "spool-watcher").Logger(),
	}, nil
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info().
		Str("spool", w.cfg.SpoolDir).
		Dur("poll_interval", w.cfg.PollInterval).
		Msg("spool watcher started")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.processNewFiles(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Msg("spool scan failed")
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("spool watcher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce scans the spool directory a single time, queueing every
// new game it finds. Batch runs use it instead of Run.
func (w *Watcher) ProcessOnce(ctx context.Context) error {
	return w.processNewFiles(ctx)
}

func (w *Watcher) processNewFiles(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.SpoolDir)
	if err != nil {
		return fmt.Errorf("read spool dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isPGNFile(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	for _, name := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		username, runID := spoolFileParts(name)
		if username == "" {
			w.log.Warn().Str("file", name).Msg("cannot infer username from spool file name, skipping")
			continue
		}

		path := filepath.Join(w.cfg.SpoolDir, name)
		if len(w.tracked) > 0 && !w.tracked[strings.ToLower(username)] {
			if err := os.Rename(path, filepath.Join(w.cfg.ProcessedDir, name)); err != nil {
				w.log.Error().Err(err).Str("file", name).Msg("failed to move untracked spool file")
				continue
			}
			w.log.Info().Str("file", name).Str("username", username).Msg("spool file for untracked player")
			continue
		}

		queued, known, filtered, err := w.processFile(ctx, path, username, runID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error().Err(err).Str("file", name).Msg("spool file failed, leaving in place")
			continue
		}

		dest := filepath.Join(w.cfg.ProcessedDir, name)
		if err := os.Rename(path, dest); err != nil {
			w.log.Error().Err(err).Str("file", name).Msg("failed to move processed spool file")
			continue
		}
		w.log.Info().
			Str("file", name).
			Str("username", username).
			Int("queued", queued).
			Int("already_known", known).
			Int("filtered", filtered).
			Msg("spool file processed")
	}
	return nil
}

// processFile streams games out of one PGN file and queues the ones the
// store has not seen for this player.
func (w *Watcher) processFile(ctx context.Context, path, username, runID string) (queued, known, filtered int, err error) {
	parser := pgn.Games(path)
	for game := range parser.Games {
		if ctx.Err() != nil {
			parser.Stop()
			return queued, known, filtered, ctx.Err()
		}

		meta := MetaFromTags(game.Tags)
		if !w.inRatingWindow(meta.PlayerElo(username)) {
			filtered++
			continue
		}
		job := Job{Username: username, Game: game, RunID: runID}
		if w.sink.Contains(job) {
			known++
			continue
		}
		if meta.GameURL != "" {
			done, err := w.st.HasGame(ctx, username, meta.GameURL)
			if err != nil {
				parser.Stop()
				return queued, known, filtered, fmt.Errorf("check game %s: %w", meta.GameURL, err)
			}
			if done {
				known++
				continue
			}
		}

		if err := w.enqueueWait(ctx, job); err != nil {
			parser.Stop()
			return queued, known, filtered, err
		}
		queued++
	}
	if err := parser.Err(); err != nil {
		return queued, known, filtered, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return queued, known, filtered, nil
}

func (w *Watcher) inRatingWindow(elo int) bool {
	if elo < w.cfg.MinElo {
		return false
	}
	if w.cfg.MaxElo > 0 && elo > w.cfg.MaxElo {
		return false
	}
	return true
}

// enqueueWait retries until the queue has room. A duplicate counts as
// done; the game is already on its way.
func (w *Watcher) enqueueWait(ctx context.Context, job Job) error {
	for {
		added, dup := w.sink.Enqueue(job)
		if added || dup {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// spoolFileParts recovers the player and run stamp from a spool file
// name of the form <username>_<runID>.pgn or .pgn.zst. Usernames may
// contain underscores themselves, so the split is at the last one.
func spoolFileParts(name string) (username, runID string) {
	base := strings.TrimSuffix(name, ".zst")
	base = strings.TrimSuffix(base, ".pgn")
	if i := strings.LastIndex(base, "_"); i > 0 {
		return base[:i], base[i+1:]
	}
	return base, ""
}

func isPGNFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".pgn" {
		return true
	}
	if ext == ".zst" {
		inner := strings.ToLower(filepath.Ext(strings.TrimSuffix(name, filepath.Ext(name))))
		return inner == ".pgn"
	}
	return false
}
