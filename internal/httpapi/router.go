// Package httpapi serves the trainer's REST API: player listings,
// aggregated opportunity analysis, per-player game lists, and control
// over the analysis pipeline.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/analyze"
	"github.com/iklasky/tactic-trainer/internal/hist"
	"github.com/iklasky/tactic-trainer/internal/opportunity"
	"github.com/iklasky/tactic-trainer/internal/store"
)

// Rating filter bounds meaning "no filter".
const (
	DefaultMinElo = 0
	DefaultMaxElo = 3000
)

// RouterConfig carries what the handlers need beyond the store.
type RouterConfig struct {
	Pool     *analyze.Pool  // optional; nil disables the pipeline endpoints
	Analysis analyze.Config // reported by /api/health
	Depth    int            // engine search depth, reported by /api/health
}

// Handler serves the REST API from the opportunity store.
type Handler struct {
	st    *store.Store
	pool  *analyze.Pool
	cfg   analyze.Config
	depth int
	cache *resultCache
	log   zerolog.Logger
}

// NewRouter builds the API handler stack.
func NewRouter(log zerolog.Logger, st *store.Store, cfg RouterConfig) http.Handler {
	h := &Handler{
		st:    st,
		pool:  cfg.Pool,
		cfg:   cfg.Analysis.WithDefaults(),
		depth: cfg.Depth,
		cache: newResultCache(),
		log:   log,
	}

	if cfg.Pool != nil {
		log.Info().Msg("analysis pipeline endpoints enabled")
	} else {
		log.Info().Msg("analysis pipeline endpoints disabled, serving stored results only")
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(h.health))
	mux.Handle("/readyz", http.HandlerFunc(h.health))
	mux.Handle("/api/health", http.HandlerFunc(h.apiHealth))
	mux.Handle("/api/players", http.HandlerFunc(h.players))
	mux.Handle("/api/analysis", http.HandlerFunc(h.analysis))
	mux.Handle("/api/games", http.HandlerFunc(h.games))
	mux.Handle("/api/analyze/status", http.HandlerFunc(h.analyzeStatus))
	mux.Handle("/api/analyze/workers", http.HandlerFunc(h.analyzeWorkers))

	// pprof endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return CORS(RequestID(AccessLog(log, mux)))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) apiHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.st.Counts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Msg("store counts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	mode := "store"
	if h.pool != nil {
		mode = "pipeline"
	}
	writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"mode":      mode,
		"store":     stats,
		"config": map[string]any{
			"delta_cutoff_cp":   h.cfg.DeltaCutoffCP,
			"max_horizon_plies": h.cfg.MaxHorizonPlies,
			"stockfish_depth":   h.depth,
		},
	})
}

func (h *Handler) players(w http.ResponseWriter, r *http.Request) {
	players, err := h.st.Players(r.Context())
	if err != nil {
		h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Msg("list players")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, map[string]any{"players": players})
}

// analysis serves the aggregated opportunity histogram plus the raw
// events behind it. An empty username aggregates the whole field, which
// the diff view compares a player against.
func (h *Handler) analysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := strings.TrimSpace(q.Get("username"))

	minElo, err := intParam(q.Get("min_elo"), DefaultMinElo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_elo")
		return
	}
	maxElo, err := intParam(q.Get("max_elo"), DefaultMaxElo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid max_elo")
		return
	}
	if minElo > maxElo {
		writeError(w, http.StatusBadRequest, "min_elo greater than max_elo")
		return
	}

	result, err := h.analysisResult(r.Context(), username, minElo, maxElo)
	if err != nil {
		h.log.Error().Err(err).
			Str("rid", GetRequestID(r.Context())).
			Str("username", username).
			Msg("build analysis")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, result)
}

func (h *Handler) analysisResult(ctx context.Context, username string, minElo, maxElo int) (*opportunity.AnalysisResult, error) {
	key := resultKey{Username: username, MinElo: minElo, MaxElo: maxElo}
	generation := h.st.Generation()
	if cached, ok := h.cache.get(key, generation); ok {
		return cached, nil
	}

	events, err := h.st.EventsFor(ctx, username, minElo, maxElo)
	if err != nil {
		return nil, err
	}
	games, err := h.st.GamesAnalyzed(ctx, username, minElo, maxElo)
	if err != nil {
		return nil, err
	}

	result, err := buildResult(username, events, games)
	if err != nil {
		return nil, err
	}
	h.cache.put(key, generation, result)
	return result, nil
}

func buildResult(username string, events []opportunity.Event, games int) (*opportunity.AnalysisResult, error) {
	deltaLabels := opportunity.DeltaBinLabels()
	timeLabels := opportunity.TBinLabels()
	agg, err := hist.NewAggregator(deltaLabels, timeLabels, events)
	if err != nil {
		return nil, err
	}

	missed := 0
	for i := range events {
		if events[i].IsMissed() {
			missed++
		}
	}

	return &opportunity.AnalysisResult{
		Username: username,
		Events:   events,
		Histogram: opportunity.HistogramData{
			DeltaBins: deltaLabels,
			TBins:     timeLabels,
			Counts:    agg.Counts(),
		},
		TotalEvents:    len(events),
		MissedCount:    missed,
		ConvertedCount: len(events) - missed,
		GamesAnalyzed:  games,
		Source:         opportunity.Source,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) games(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := strings.TrimSpace(q.Get("username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "missing username parameter")
		return
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	games, err := h.st.ListGames(r.Context(), username, limit)
	if err != nil {
		h.log.Error().Err(err).Str("rid", GetRequestID(r.Context())).Msg("list games")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, map[string]any{
		"username":    username,
		"total_games": len(games),
		"games":       games,
	})
}

// analyzeStatus reports the pipeline's queue and progress counters.
func (h *Handler) analyzeStatus(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		writeJSON(w, map[string]any{"enabled": false})
		return
	}

	s := h.pool.Status()
	writeJSON(w, map[string]any{
		"enabled":        true,
		"run_id":         h.pool.RunID(),
		"active_workers": s.ActiveWorkers,
		"max_workers":    s.MaxWorkers,
		"queue_len":      s.QueueLen,
		"games_analyzed": s.GamesAnalyzed,
		"games_skipped":  s.GamesSkipped,
		"games_failed":   s.GamesFailed,
		"events_found":   s.EventsFound,
		"cp_found":       s.CPFound,
		"mate_found":     s.MateFound,
		"missed_found":   s.MissedFound,
	})
}

// analyzeWorkers reads (GET) or adjusts (POST) the number of active
// analysis workers, from a ?workers=N param or a {"workers": N} body.
func (h *Handler) analyzeWorkers(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis pipeline not configured")
		return
	}

	if r.Method == http.MethodGet {
		s := h.pool.Status()
		writeJSON(w, map[string]any{
			"active_workers": s.ActiveWorkers,
			"max_workers":    s.MaxWorkers,
		})
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var workers int
	if param := r.URL.Query().Get("workers"); param != "" {
		n, err := strconv.Atoi(param)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid workers param")
			return
		}
		workers = n
	} else {
		var body struct {
			Workers int `json:"workers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		workers = body.Workers
	}

	h.pool.SetActiveWorkers(workers)
	s := h.pool.Status()
	h.log.Info().Int("workers", s.ActiveWorkers).Msg("analysis workers updated via API")

	writeJSON(w, map[string]any{
		"active_workers": s.ActiveWorkers,
		"max_workers":    s.MaxWorkers,
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
