package analyze

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
	"github.com/iklasky/tactic-trainer/internal/store"
)

// PoolConfig configures the analysis worker pool.
type PoolConfig struct {
	Engine     EngineConfig
	Analysis   Config
	NumWorkers int
	QueueSize  int
	Logger     zerolog.Logger

	// NewEvaluator overrides engine creation; tests inject fakes here.
	NewEvaluator func() (Evaluator, error)
}

// Status is a snapshot of the pool's queue and progress counters.
type Status struct {
	ActiveWorkers int   `json:"active_workers"`
	MaxWorkers    int   `json:"max_workers"`
	QueueLen      int   `json:"queue_len"`
	GamesAnalyzed int64 `json:"games_analyzed"`
	GamesSkipped  int64 `json:"games_skipped"`
	GamesFailed   int64 `json:"games_failed"`
	EventsFound   int64 `json:"events_found"`
	CPFound       int64 `json:"cp_found"`
	MateFound     int64 `json:"mate_found"`
	MissedFound   int64 `json:"missed_found"`
}

// Pool runs game analysis across a set of workers, each owning one
// engine process. Results are written to the store as they complete.
type Pool struct {
	cfg      PoolConfig
	log      zerolog.Logger
	st       *store.Store
	analyzer *Analyzer
	queue    *GameQueue
	newEval  func() (Evaluator, error)
	runID    string

	activeWorkers int32
	maxWorkers    int32
	busyWorkers   int32

	gamesAnalyzed int64
	gamesSkipped  int64
	gamesFailed   int64
	eventsFound   int64
	cpFound       int64
	mateFound     int64
	missedFound   int64
}

func NewPool(cfg PoolConfig, st *store.Store) *Pool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	log := cfg.Logger.With().Str("component", "analyze-pool").Logger()
	p := &Pool{
		cfg:           cfg,
		log:           log,
		st:            st,
		analyzer:      New(cfg.Analysis, log),
		queue:         NewGameQueue(cfg.QueueSize),
		newEval:       cfg.NewEvaluator,
		runID:         uuid.NewString(),
		activeWorkers: int32(cfg.NumWorkers),
		maxWorkers:    int32(cfg.NumWorkers),
	}
	if p.newEval == nil {
		p.newEval = func() (Evaluator, error) {
			return NewUCIEvaluator(cfg.Engine, log)
		}
	}
	return p
}

// Enqueue queues a game for analysis. added is false when the job was
// not queued; dup distinguishes an already-queued game from a full
// queue.
func (p *Pool) Enqueue(job Job) (added, dup bool) {
	return p.queue.Enqueue(job)
}

// Contains reports whether a matching job is already queued.
func (p *Pool) Contains(job Job) bool {
	return p.queue.Contains(job)
}

// QueueLen returns how many games are waiting.
func (p *Pool) QueueLen() int {
	return p.queue.Len()
}

// Idle reports whether no games are queued or in flight. Only
// meaningful once enqueuing has stopped, e.g. to drain a batch run.
func (p *Pool) Idle() bool {
	return p.queue.Len() == 0 && atomic.LoadInt32(&p.busyWorkers) == 0
}

// RunID identifies this pool's analysis batch.
func (p *Pool) RunID() string {
	return p.runID
}

// Status returns a snapshot of the pool's counters.
func (p *Pool) Status() Status {
	return Status{
		ActiveWorkers: int(atomic.LoadInt32(&p.activeWorkers)),
		MaxWorkers:    int(atomic.LoadInt32(&p.maxWorkers)),
		QueueLen:      p.queue.Len(),
		GamesAnalyzed: atomic.LoadInt64(&p.gamesAnalyzed),
		GamesSkipped:  atomic.LoadInt64(&p.gamesSkipped),
		GamesFailed:   atomic.LoadInt64(&p.gamesFailed),
		EventsFound:   atomic.LoadInt64(&p.eventsFound),
		CPFound:       atomic.LoadInt64(&p.cpFound),
		MateFound:     atomic.LoadInt64(&p.mateFound),
		MissedFound:   atomic.LoadInt64(&p.missedFound),
	}
}

// SetActiveWorkers adjusts how many workers may pick up jobs. Workers
// above the limit park until the limit rises again.
func (p *Pool) SetActiveWorkers(n int) {
	max := int(atomic.LoadInt32(&p.maxWorkers))
	if n < 0 {
		n = 0
	}
	if n > max {
		n = max
	}
	old := atomic.SwapInt32(&p.activeWorkers, int32(n))
	p.log.Info().Int32("old", old).Int("new", n).Msg("active worker count changed")
}

// Pause parks all workers without dropping queued jobs.
func (p *Pool) Pause() {
	p.SetActiveWorkers(0)
}

// Resume unparks all workers.
func (p *Pool) Resume() {
	p.SetActiveWorkers(int(atomic.LoadInt32(&p.maxWorkers)))
}

// Run starts the workers and blocks until ctx is cancelled and all
// workers have drained.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info().
		Int("workers", p.cfg.NumWorkers).
		Str("run_id", p.runID).
		Msg("analysis pool starting")

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
	p.log.Info().Msg("analysis pool stopped")
	return ctx.Err()
}

func (p *Pool) runWorker(ctx context.Context, workerID int) {
	log := p.log.With().Int("worker", workerID).Logger()

	evaluator, err := p.newEval()
	if err != nil {
		log.Error().Err(err).Msg("failed to start evaluator, worker exiting")
		return
	}
	defer evaluator.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Workers above the active limit park here.
		for int32(workerID) >= atomic.LoadInt32(&p.activeWorkers) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
		}

		// busyWorkers rises before the dequeue so Idle never reports
		// true while a job is between the queue and its worker.
		atomic.AddInt32(&p.busyWorkers, 1)
		job, ok := p.queue.Dequeue()
		if !ok {
			atomic.AddInt32(&p.busyWorkers, -1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		err := p.processJob(ctx, evaluator, job, log)
		atomic.AddInt32(&p.busyWorkers, -1)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			atomic.AddInt64(&p.gamesFailed, 1)
			log.Warn().Err(err).
				Str("username", job.Username).
				Msg("game analysis failed")
		}
	}
}

func (p *Pool) processJob(ctx context.Context, evaluator Evaluator, job Job, log zerolog.Logger) error {
	meta := MetaFromTags(job.Game.Tags)

	if v := job.Game.Tags["Variant"]; v != "" && v != "Standard" {
		atomic.AddInt64(&p.gamesSkipped, 1)
		log.Debug().Str("variant", v).Str("game", meta.GameURL).Msg("skipping variant game")
		return nil
	}
	playerIsWhite, ok := playerSide(job.Game.Tags, job.Username)
	if !ok {
		return fmt.Errorf("player %q is in neither seat of %s vs %s", job.Username, meta.White, meta.Black)
	}

	started := time.Now()
	events, err := p.analyzer.AnalyzeGame(evaluator, job.Game, job.Username)
	if err != nil {
		return fmt.Errorf("analyze game: %w", err)
	}

	runID := job.RunID
	if runID == "" {
		runID = p.runID
	}
	rec := gameRecord(job.Username, meta, playerIsWhite, runID)

	if err := p.st.UpsertGame(ctx, rec); err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	if err := p.st.ReplaceGameEvents(ctx, job.Username, rec.GameURL, rec.PlayerElo, runID, events); err != nil {
		return fmt.Errorf("record events: %w", err)
	}

	missed, mates := 0, 0
	for i := range events {
		if events[i].IsMissed() {
			missed++
		}
		if events[i].Kind == opportunity.KindMate {
			mates++
		}
	}
	atomic.AddInt64(&p.gamesAnalyzed, 1)
	atomic.AddInt64(&p.eventsFound, int64(len(events)))
	atomic.AddInt64(&p.cpFound, int64(len(events)-mates))
	atomic.AddInt64(&p.mateFound, int64(mates))
	atomic.AddInt64(&p.missedFound, int64(missed))

	log.Info().
		Str("username", job.Username).
		Str("game", rec.GameURL).
		Int("events", len(events)).
		Int("missed", missed).
		Dur("took", time.Since(started)).
		Msg("game analyzed")
	return nil
}

func gameRecord(username string, meta GameMeta, playerIsWhite bool, runID string) store.GameRecord {
	rec := store.GameRecord{
		Username:    username,
		GameURL:     meta.GameURL,
		Opponent:    meta.Opponent(username),
		WhitePlayer: meta.White,
		BlackPlayer: meta.Black,
		PlayerColor: "black",
		PlayerElo:   meta.PlayerElo(username),
		OpponentElo: meta.WhiteElo,
		TimeControl: meta.TimeControl,
		GameResult:  meta.Result,
		ECO:         meta.ECO,
		Opening:     meta.Opening,
		EndTime:     meta.EndTime,
		RunID:       runID,
	}
	if playerIsWhite {
		rec.PlayerColor = "white"
		rec.OpponentElo = meta.BlackElo
	}
	if rec.GameURL == "" {
		rec.GameURL = fmt.Sprintf("pgn:%s-%s-%d", meta.White, meta.Black, meta.EndTime)
	}
	return rec
}
