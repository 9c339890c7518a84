package analyze

import (
	"fmt"
	"strings"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"
)

// Score is one engine evaluation, normalized to white's perspective.
type Score struct {
	CP       int    // centipawns, meaningful when IsMate is false
	Mate     int    // moves to mate; negative means white is getting mated
	IsMate   bool
	BestMove string // UCI notation, empty when the engine had no move
}

// Evaluator scores a position and suggests the best move. An
// implementation does not need to be safe for concurrent use; the pool
// gives each worker its own instance.
type Evaluator interface {
	Evaluate(fen string) (Score, error)
	Close() error
}

// EngineConfig configures one Stockfish-backed evaluator.
type EngineConfig struct {
	StockfishPath string
	Depth         int // search depth per position
	HashMB        int // hash table size per engine process
	Threads       int // threads per engine process
	Nice          int // nice value for the engine process (0 = disabled)
}

// UCIEvaluator drives a UCI engine subprocess.
type UCIEvaluator struct {
	eng   *uci.Engine
	depth int
}

// NewUCIEvaluator starts the engine process and applies its options.
func NewUCIEvaluator(cfg EngineConfig, log zerolog.Logger) (*UCIEvaluator, error) {
	if cfg.StockfishPath == "" {
		return nil, fmt.Errorf("stockfish path required")
	}
	if cfg.Depth == 0 {
		cfg.Depth = 20
	}
	if cfg.HashMB == 0 {
		cfg.HashMB = 256
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}

	engine, err := uci.NewEngine(cfg.StockfishPath)
	if err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}

	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := engine.SetOptions(opts); err != nil {
		engine.Close()
		return nil, fmt.Errorf("set engine options: %w", err)
	}

	if cfg.Nice > 0 {
		nice := cfg.Nice
		if nice > 19 {
			log.Warn().Int("requested", nice).Int("clamped", 19).Msg("nice value clamped to max 19")
			nice = 19
		}
		if err := engine.SetNice(nice); err != nil {
			log.Warn().Err(err).Int("nice", nice).Msg("failed to set nice value")
		}
	}

	return &UCIEvaluator{eng: engine, depth: cfg.Depth}, nil
}

// Evaluate scores fen. Must not be called on terminal positions; the
// engine has no move to search there.
func (e *UCIEvaluator) Evaluate(fen string) (Score, error) {
	if err := e.eng.SetFEN(fen); err != nil {
		return Score{}, fmt.Errorf("set FEN: %w", err)
	}
	results, err := e.eng.GoDepth(e.depth, uci.HighestDepthOnly)
	if err != nil {
		return Score{}, fmt.Errorf("engine eval: %w", err)
	}
	if len(results.Results) == 0 {
		return Score{}, fmt.Errorf("no results from engine")
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}

	// Engine scores are from the side to move; normalize to white.
	score := best.Score
	if strings.Contains(fen, " b ") {
		score = -score
	}

	s := Score{BestMove: results.BestMove}
	if s.BestMove == "" && len(best.BestMoves) > 0 {
		s.BestMove = best.BestMoves[0]
	}
	if best.Mate {
		s.Mate = score
		s.IsMate = true
	} else {
		s.CP = score
	}
	return s, nil
}

// Close shuts down the engine process.
func (e *UCIEvaluator) Close() error {
	e.eng.Close()
	return nil
}
