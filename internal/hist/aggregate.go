package hist

import (
	"fmt"
	"math"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

// ViewMode selects what a grid cell displays.
type ViewMode int

const (
	// ModeCount shows the raw count of missed events in the cell.
	ModeCount ViewMode = iota
	// ModePercentage shows missed/total*100, rounded, 0 for an empty cell.
	ModePercentage
	// ModeDiff shows the player-vs-field differential; it is derived
	// from two aggregators via DiffScore, not from Value.
	ModeDiff
)

func (m ViewMode) String() string {
	switch m {
	case ModeCount:
		return "count"
	case ModePercentage:
		return "percentage"
	case ModeDiff:
		return "diff"
	}
	return "unknown"
}

// ParseViewMode maps a mode name back to its ViewMode.
func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "count":
		return ModeCount, nil
	case "percentage":
		return ModePercentage, nil
	case "diff":
		return ModeDiff, nil
	}
	return ModeCount, fmt.Errorf("unknown view mode %q", s)
}

type cell struct {
	events []opportunity.Event
	missed int
}

// Aggregator groups an event collection by histogram cell once and
// answers per-cell display queries. Events that fit no cell are
// dropped and counted in Skipped.
type Aggregator struct {
	deltaLabels []string
	timeLabels  []string
	cells       [][]cell
	skipped     int
}

// NewAggregator classifies events into a grid defined by the label
// sets. Fails only on malformed advantage labels.
func NewAggregator(deltaLabels, timeLabels []string, events []opportunity.Event) (*Aggregator, error) {
	classifier, err := NewBinClassifier(deltaLabels, timeLabels)
	if err != nil {
		return nil, err
	}

	cells := make([][]cell, len(deltaLabels))
	for i := range cells {
		cells[i] = make([]cell, len(timeLabels))
	}

	a := &Aggregator{
		deltaLabels: append([]string(nil), deltaLabels...),
		timeLabels:  append([]string(nil), timeLabels...),
		cells:       cells,
	}

	for i := range events {
		di, ti, ok := classifier.Classify(&events[i])
		if !ok {
			a.skipped++
			continue
		}
		c := &a.cells[di][ti]
		c.events = append(c.events, events[i])
		if events[i].IsMissed() {
			c.missed++
		}
	}

	return a, nil
}

// DeltaLabels returns the advantage-axis labels, in grid row order.
func (a *Aggregator) DeltaLabels() []string { return a.deltaLabels }

// TimeLabels returns the conversion-time labels, in grid column order.
func (a *Aggregator) TimeLabels() []string { return a.timeLabels }

// Skipped returns how many events fit no cell.
func (a *Aggregator) Skipped() int { return a.skipped }

// Total returns the number of events in a cell, converted included.
func (a *Aggregator) Total(di, ti int) int {
	if !a.inBounds(di, ti) {
		return 0
	}
	return len(a.cells[di][ti].events)
}

// Missed returns the number of missed events in a cell.
func (a *Aggregator) Missed(di, ti int) int {
	if !a.inBounds(di, ti) {
		return 0
	}
	return a.cells[di][ti].missed
}

// Percentage returns the cell's miss rate rounded to the nearest
// integer, 0 when the cell is empty.
func (a *Aggregator) Percentage(di, ti int) int {
	total := a.Total(di, ti)
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(a.Missed(di, ti)) / float64(total) * 100))
}

// Value returns the cell's display value for count or percentage mode.
func (a *Aggregator) Value(di, ti int, mode ViewMode) int {
	if mode == ModePercentage {
		return a.Percentage(di, ti)
	}
	return a.Missed(di, ti)
}

// Max returns the largest cell value in the given mode across the
// whole grid, never less than 1 so intensities divide cleanly on an
// empty grid.
func (a *Aggregator) Max(mode ViewMode) int {
	max := 1
	for di := range a.cells {
		for ti := range a.cells[di] {
			if v := a.Value(di, ti, mode); v > max {
				max = v
			}
		}
	}
	return max
}

// Intensity maps a cell's value onto [0,1] relative to the grid
// maximum in the given mode.
func (a *Aggregator) Intensity(di, ti int, mode ViewMode) float64 {
	v := float64(a.Value(di, ti, mode)) / float64(a.Max(mode))
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CellEvents returns every event in a cell, converted included.
func (a *Aggregator) CellEvents(di, ti int) []opportunity.Event {
	if !a.inBounds(di, ti) {
		return nil
	}
	return a.cells[di][ti].events
}

// MissedEvents returns the cell's drill-down list: missed events only.
func (a *Aggregator) MissedEvents(di, ti int) []opportunity.Event {
	if !a.inBounds(di, ti) {
		return nil
	}
	var out []opportunity.Event
	for _, ev := range a.cells[di][ti].events {
		if ev.IsMissed() {
			out = append(out, ev)
		}
	}
	return out
}

// Counts materializes the per-cell totals, indexed [delta][time], for
// the histogram wire shape.
func (a *Aggregator) Counts() [][]int {
	counts := make([][]int, len(a.cells))
	for di := range a.cells {
		counts[di] = make([]int, len(a.cells[di]))
		for ti := range a.cells[di] {
			counts[di][ti] = len(a.cells[di][ti].events)
		}
	}
	return counts
}

func (a *Aggregator) inBounds(di, ti int) bool {
	return di >= 0 && di < len(a.cells) && ti >= 0 && ti < len(a.cells[di])
}

// DiffScore compares the player's miss percentage in a cell against
// the field's. Positive means the player misses less than the field.
// ok is false when neither side has events in the cell ("no data",
// which renders differently from an equal-percentage 0).
func DiffScore(player, field *Aggregator, di, ti int) (score float64, ok bool) {
	pTotal := player.Total(di, ti)
	fTotal := field.Total(di, ti)
	if pTotal == 0 && fTotal == 0 {
		return 0, false
	}

	var pPct, fPct float64
	if pTotal > 0 {
		pPct = float64(player.Missed(di, ti)) / float64(pTotal) * 100
	}
	if fTotal > 0 {
		fPct = float64(field.Missed(di, ti)) / float64(fTotal) * 100
	}

	score = fPct - pPct
	if score > 50 {
		score = 50
	}
	if score < -50 {
		score = -50
	}
	return score, true
}
