// Package ui is the terminal trainer: a player picker, the opportunity
// histogram grid, a per-cell drill-down list, and a move-by-move replay
// board, driven by the analysis API.
package ui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/iklasky/tactic-trainer/internal/hist"
	"github.com/iklasky/tactic-trainer/internal/opportunity"
	"github.com/iklasky/tactic-trainer/internal/replay"
)

// API is the slice of the analysis service the trainer consumes.
type API interface {
	Players(ctx context.Context) ([]opportunity.PlayerSummary, error)
	Analysis(ctx context.Context, username string, minElo, maxElo int) (*opportunity.AnalysisResult, error)
}

// Filters is the selection state threaded through every screen: whose
// events, which rating window, which view mode. It travels with the
// model; nothing reads it from globals.
type Filters struct {
	Player string
	MinElo int
	MaxElo int
	Mode   hist.ViewMode
}

type screen int

const (
	screenPlayers screen = iota
	screenGrid
	screenEvents
	screenReplay
)

// Messages carry the generation of the request that produced them, so
// a response that arrives after the user has moved on is dropped
// instead of clobbering the current screen.
type playersMsg struct {
	players []opportunity.PlayerSummary
	err     error
}

type analysisMsg struct {
	gen    int
	result *opportunity.AnalysisResult
	err    error
}

type fieldMsg struct {
	gen    int
	result *opportunity.AnalysisResult
	err    error
}

// Model is the bubbletea model for the trainer.
type Model struct {
	api     API
	log     zerolog.Logger
	filters Filters

	screen  screen
	players table.Model
	events  table.Model

	result   *opportunity.AnalysisResult
	agg      *hist.Aggregator
	fieldAgg *hist.Aggregator

	selDelta   int
	selTime    int
	cellEvents []opportunity.Event
	replay     *replay.Session

	gen          int
	loading      bool
	loadingField bool
	status       string
	width        int
	height       int
}

// New builds the trainer model. When filters name a player the first
// analysis fetch starts immediately and the grid opens once it lands.
func New(api API, filters Filters, log zerolog.Logger) Model {
	m := Model{
		api:     api,
		log:     log,
		filters: filters,
		screen:  screenPlayers,
		players: newPlayersTable(),
		events:  newEventsTable(),
	}
	if filters.Player != "" {
		m.loading = true
	}
	if filters.Mode == hist.ModeDiff {
		m.loadingField = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchPlayers()}
	if m.filters.Player != "" {
		cmds = append(cmds, m.fetchAnalysis())
	}
	if m.filters.Mode == hist.ModeDiff {
		cmds = append(cmds, m.fetchField())
	}
	return tea.Batch(cmds...)
}

func (m Model) fetchPlayers() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		players, err := api.Players(context.Background())
		return playersMsg{players: players, err: err}
	}
}

func (m Model) fetchAnalysis() tea.Cmd {
	api, gen, f := m.api, m.gen, m.filters
	return func() tea.Msg {
		result, err := api.Analysis(context.Background(), f.Player, f.MinElo, f.MaxElo)
		return analysisMsg{gen: gen, result: result, err: err}
	}
}

func (m Model) fetchField() tea.Cmd {
	api, gen, f := m.api, m.gen, m.filters
	return func() tea.Msg {
		result, err := api.Analysis(context.Background(), "", f.MinElo, f.MaxElo)
		return fieldMsg{gen: gen, result: result, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.players.SetHeight(maxInt(msg.Height-6, 3))
		m.events.SetHeight(maxInt(msg.Height-6, 3))
		return m, nil

	case playersMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.players.SetRows(playerRows(msg.players))
		return m, nil

	case analysisMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		return m.applyAnalysis(msg.result), nil

	case fieldMsg:
		if msg.gen != m.gen {
			// A fetch for the new generation may still be running; the
			// flag only suppresses duplicate fetches, so clearing it
			// early is safe.
			m.loadingField = false
			return m, nil
		}
		m.loadingField = false
		if msg.err != nil {
			// Fall back to the plain view rather than an empty grid.
			m.filters.Mode = hist.ModeCount
			m.status = msg.err.Error()
			return m, nil
		}
		agg, err := buildAggregator(msg.result)
		if err != nil {
			m.filters.Mode = hist.ModeCount
			m.status = err.Error()
			return m, nil
		}
		m.fieldAgg = agg
		return m, nil

	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m.back(), nil
		}
		switch m.screen {
		case screenPlayers:
			return m.updatePlayers(msg)
		case screenGrid:
			return m.updateGrid(msg)
		case screenEvents:
			return m.updateEvents(msg)
		case screenReplay:
			return m.updateReplay(msg)
		}
	}
	return m, nil
}

// applyAnalysis installs a fresh result and opens the grid when the
// model was still waiting on the picker.
func (m Model) applyAnalysis(result *opportunity.AnalysisResult) Model {
	agg, err := buildAggregator(result)
	if err != nil {
		m.status = err.Error()
		return m
	}
	m.result = result
	m.agg = agg
	m.selDelta, m.selTime = 0, 0
	if m.screen == screenPlayers {
		m.screen = screenGrid
	}
	return m
}

// buildAggregator regroups the response's events under the server's
// bucket labels; the canonical sets cover responses without a
// histogram block.
func buildAggregator(result *opportunity.AnalysisResult) (*hist.Aggregator, error) {
	deltaLabels := result.Histogram.DeltaBins
	if len(deltaLabels) == 0 {
		deltaLabels = opportunity.DeltaBinLabels()
	}
	timeLabels := result.Histogram.TBins
	if len(timeLabels) == 0 {
		timeLabels = opportunity.TBinLabels()
	}
	return hist.NewAggregator(deltaLabels, timeLabels, result.Events)
}

// back walks one screen toward the picker. Leaving the grid abandons
// the loaded analysis and invalidates any fetch still in flight.
func (m Model) back() Model {
	switch m.screen {
	case screenReplay:
		m.replay = nil
		m.screen = screenEvents
	case screenEvents:
		m.screen = screenGrid
	case screenGrid:
		m.gen++
		m.filters.Player = ""
		m.result, m.agg, m.fieldAgg = nil, nil, nil
		m.loading, m.loadingField = false, false
		m.screen = screenPlayers
	}
	return m
}

func (m Model) updatePlayers(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		row := m.players.SelectedRow()
		if len(row) == 0 {
			return m, nil
		}
		m.filters.Player = row[0]
		m.gen++
		m.loading = true
		m.fieldAgg = nil
		cmds := []tea.Cmd{m.fetchAnalysis()}
		// Selecting a player invalidates any field fetch in flight, so
		// the diff view needs a fresh one under the new generation.
		if m.filters.Mode == hist.ModeDiff {
			m.loadingField = true
			cmds = append(cmds, m.fetchField())
		}
		return m, tea.Batch(cmds...)
	}
	var cmd tea.Cmd
	m.players, cmd = m.players.Update(msg)
	return m, cmd
}

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.agg == nil {
		return m, nil
	}
	rows := len(m.agg.DeltaLabels())
	cols := len(m.agg.TimeLabels())

	switch msg.String() {
	case "up":
		m.selDelta = maxInt(m.selDelta-1, 0)
	case "down":
		m.selDelta = minInt(m.selDelta+1, rows-1)
	case "left":
		m.selTime = maxInt(m.selTime-1, 0)
	case "right":
		m.selTime = minInt(m.selTime+1, cols-1)
	case "m":
		return m.cycleMode()
	case "enter":
		events := m.agg.MissedEvents(m.selDelta, m.selTime)
		if len(events) == 0 {
			m.status = "no missed opportunities in this cell"
			return m, nil
		}
		m.cellEvents = events
		m.events.SetRows(eventRows(events))
		m.events.SetCursor(0)
		m.screen = screenEvents
	}
	return m, nil
}

// cycleMode steps count -> percentage -> diff -> count. Entering diff
// for the first time kicks off the field aggregate fetch.
func (m Model) cycleMode() (tea.Model, tea.Cmd) {
	switch m.filters.Mode {
	case hist.ModeCount:
		m.filters.Mode = hist.ModePercentage
	case hist.ModePercentage:
		m.filters.Mode = hist.ModeDiff
		if m.fieldAgg == nil && !m.loadingField {
			m.loadingField = true
			return m, m.fetchField()
		}
	default:
		m.filters.Mode = hist.ModeCount
	}
	return m, nil
}

func (m Model) updateEvents(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		idx := m.events.Cursor()
		if idx < 0 || idx >= len(m.cellEvents) {
			return m, nil
		}
		session, err := replay.New(m.cellEvents[idx], m.log)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.replay = session
		m.screen = screenReplay
		return m, nil
	}
	var cmd tea.Cmd
	m.events, cmd = m.events.Update(msg)
	return m, cmd
}

func (m Model) updateReplay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.replay == nil {
		return m, nil
	}
	switch msg.String() {
	case "left":
		if err := m.replay.Retreat(); err != nil {
			m.status = err.Error()
		}
	case "right":
		if err := m.replay.Advance(); err != nil {
			m.status = err.Error()
		}
	}
	return m, nil
}

func newPlayersTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Player", Width: 24},
			{Title: "Games", Width: 8},
			{Title: "Opportunities", Width: 14},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(trainerTableStyles())
	return t
}

func newEventsTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Ply", Width: 5},
			{Title: "Move", Width: 8},
			{Title: "Best", Width: 8},
			{Title: "Gain", Width: 7},
			{Title: "T", Width: 4},
			{Title: "Color", Width: 6},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	t.SetStyles(trainerTableStyles())
	return t
}

func playerRows(players []opportunity.PlayerSummary) []table.Row {
	rows := make([]table.Row, 0, len(players))
	for _, p := range players {
		rows = append(rows, table.Row{
			p.Username,
			strconv.Itoa(p.Games),
			strconv.Itoa(p.Opportunities),
		})
	}
	return rows
}

func eventRows(events []opportunity.Event) []table.Row {
	rows := make([]table.Row, 0, len(events))
	for _, ev := range events {
		rows = append(rows, table.Row{
			strconv.Itoa(ev.PlyIndex),
			ev.MoveSAN,
			ev.BestMoveSAN,
			gainLabel(ev),
			strconv.Itoa(ev.TPlies),
			ev.PlayerColor,
		})
	}
	return rows
}

// gainLabel condenses what the event was worth: mate distance for mate
// opportunities, the centipawn swing otherwise.
func gainLabel(ev opportunity.Event) string {
	if ev.Kind == opportunity.KindMate {
		return fmt.Sprintf("M%d", ev.MateIn)
	}
	return fmt.Sprintf("+%d", ev.DeltaCP)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
