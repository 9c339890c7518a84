package analyze

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSink struct {
	mu   sync.Mutex
	jobs []Job
}

func (s *fakeSink) Enqueue(job Job) (added, dup bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return true, false
}

func (s *fakeSink) Contains(job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queued := range s.jobs {
		if queued.key() == job.key() {
			return true
		}
	}
	return false
}

type fakeIndex struct {
	known map[string]bool
}

func (f *fakeIndex) HasGame(_ context.Context, username, gameURL string) (bool, error) {
	return f.known[username+"|"+gameURL], nil
}

const spoolPGN = `[Event "Live Chess"]
[Site "Chess.com"]
[Date "2024.01.15"]
[Round "-"]
[White "key_kay"]
[Black "rival"]
[Result "1-0"]
[WhiteElo "1500"]
[BlackElo "1450"]
[TimeControl "600"]
[UTCDate "2024.01.15"]
[UTCTime "12:30:00"]
[Link "https://www.chess.com/game/live/101"]

1. e4 e5 2. Nf3 Nc6 1-0

[Event "Live Chess"]
[Site "Chess.com"]
[Date "2024.01.16"]
[Round "-"]
[White "other"]
[Black "key_kay"]
[Result "0-1"]
[WhiteElo "1510"]
[BlackElo "1500"]
[TimeControl "600"]
[UTCDate "2024.01.16"]
[UTCTime "09:00:00"]
[Link "https://www.chess.com/game/live/102"]

1. d4 d5 2. c4 e6 0-1
`

func TestWatcherProcessesSpoolFiles(t *testing.T) {
	t.Parallel()

	spool := t.TempDir()
	name := "key_kay_1700000000.pgn"
	if err := os.WriteFile(filepath.Join(spool, name), []byte(spoolPGN), 0o644); err != nil {
		t.Fatal(err)
	}

	sink := &fakeSink{}
	idx := &fakeIndex{known: map[string]bool{
		"key_kay|https://www.chess.com/game/live/101": true,
	}}

	w, err := NewWatcher(WatcherConfig{SpoolDir: spool, Logger: zerolog.Nop()}, idx, sink)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if len(sink.jobs) != 1 {
		t.Fatalf("queued %d jobs, want 1 (first game already known)", len(sink.jobs))
	}
	job := sink.jobs[0]
	if job.Username != "key_kay" {
		t.Errorf("Username = %q, want key_kay", job.Username)
	}
	if job.RunID != "1700000000" {
		t.Errorf("RunID = %q, want the filename stamp", job.RunID)
	}
	if got := job.Game.Tags["Link"]; got != "https://www.chess.com/game/live/102" {
		t.Errorf("queued game = %q, want the unknown one", got)
	}
	if len(job.Game.Moves) != 4 {
		t.Errorf("queued game has %d moves, want 4", len(job.Game.Moves))
	}

	if _, err := os.Stat(filepath.Join(spool, name)); !os.IsNotExist(err) {
		t.Errorf("spool file still present after processing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(spool, "processed", name)); err != nil {
		t.Errorf("processed copy missing: %v", err)
	}

	// A second scan finds nothing new.
	if err := w.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if len(sink.jobs) != 1 {
		t.Errorf("second scan queued %d extra jobs", len(sink.jobs)-1)
	}
}

func TestWatcherSkipsQueuedGames(t *testing.T) {
	t.Parallel()

	// Two spool files carrying the same games: the second scan pass
	// finds them already queued and must not enqueue them again.
	spool := t.TempDir()
	for _, name := range []string{"key_kay_42.pgn", "key_kay_43.pgn"} {
		if err := os.WriteFile(filepath.Join(spool, name), []byte(spoolPGN), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sink := &fakeSink{}
	w, err := NewWatcher(WatcherConfig{SpoolDir: spool, Logger: zerolog.Nop()}, &fakeIndex{}, sink)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if len(sink.jobs) != 2 {
		t.Fatalf("queued %d jobs, want 2 (one per distinct game)", len(sink.jobs))
	}
	seen := map[string]bool{}
	for _, job := range sink.jobs {
		url := job.Game.Tags["Link"]
		if seen[url] {
			t.Errorf("game %s queued twice", url)
		}
		seen[url] = true
	}
}

func TestWatcherDisabledWithoutSpoolDir(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(WatcherConfig{}, &fakeIndex{}, &fakeSink{})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if w != nil {
		t.Fatal("watcher should be nil when no spool dir is configured")
	}
}

func TestWatcherFilters(t *testing.T) {
	t.Parallel()

	spool := t.TempDir()
	for _, name := range []string{"key_kay_42.pgn", "stranger_43.pgn"} {
		if err := os.WriteFile(filepath.Join(spool, name), []byte(spoolPGN), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sink := &fakeSink{}
	w, err := NewWatcher(WatcherConfig{
		SpoolDir:  spool,
		Logger:    zerolog.Nop(),
		Usernames: []string{"KEY_KAY"},
		MinElo:    1490,
		MaxElo:    1505,
	}, &fakeIndex{}, sink)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	// key_kay plays at 1500 in both games; the untracked file is set
	// aside without enqueueing anything.
	if len(sink.jobs) != 2 {
		t.Fatalf("queued %d jobs, want 2", len(sink.jobs))
	}
	for _, job := range sink.jobs {
		if job.Username != "key_kay" {
			t.Errorf("queued job for %q", job.Username)
		}
	}
	if _, err := os.Stat(filepath.Join(spool, "processed", "stranger_43.pgn")); err != nil {
		t.Errorf("untracked file not set aside: %v", err)
	}

	// A tight window excludes the same games.
	sink2 := &fakeSink{}
	if err := os.WriteFile(filepath.Join(spool, "key_kay_44.pgn"), []byte(spoolPGN), 0o644); err != nil {
		t.Fatal(err)
	}
	w2, err := NewWatcher(WatcherConfig{
		SpoolDir: spool,
		Logger:   zerolog.Nop(),
		MinElo:   2000,
	}, &fakeIndex{}, sink2)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w2.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(sink2.jobs) != 0 {
		t.Errorf("queued %d jobs, want all filtered by rating", len(sink2.jobs))
	}
}

func TestSpoolFileParts(t *testing.T) {
	t.Parallel()

	cases := map[string][2]string{
		"magnus_1700000000.pgn":      {"magnus", "1700000000"},
		"key_kay_1700000000.pgn.zst": {"key_kay", "1700000000"},
		"nounderscore.pgn":           {"nounderscore", ""},
	}
	for in, want := range cases {
		user, run := spoolFileParts(in)
		if user != want[0] || run != want[1] {
			t.Errorf("spoolFileParts(%q) = (%q, %q), want (%q, %q)", in, user, run, want[0], want[1])
		}
	}
}

func TestIsPGNFile(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"a_1.pgn":     true,
		"a_1.pgn.zst": true,
		"a_1.PGN":     true,
		"a_1.zst":     false,
		"a_1.txt":     false,
		"a_1.pgn.tmp": false,
	}
	for in, want := range cases {
		if got := isPGNFile(in); got != want {
			t.Errorf("isPGNFile(%q) = %v, want %v", in, got, want)
		}
	}
}
