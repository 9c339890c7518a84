// Package hist buckets opportunity events into the advantage-size by
// conversion-time histogram and derives the display values for its
// grid: counts, miss percentages, heat colors, and player-vs-field
// differentials.
package hist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

// deltaBin is one advantage-axis bucket. Bounds are parsed from the
// label text; an open bucket ("800+") has no upper bound and also
// catches every mate opportunity.
type deltaBin struct {
	label string
	min   int
	max   int
	open  bool
}

func parseDeltaLabel(label string) (deltaBin, error) {
	if v, ok := strings.CutSuffix(label, "+"); ok {
		min, err := strconv.Atoi(v)
		if err != nil {
			return deltaBin{}, fmt.Errorf("delta label %q: %w", label, err)
		}
		return deltaBin{label: label, min: min, open: true}, nil
	}

	lo, hi, ok := strings.Cut(label, "-")
	if !ok {
		return deltaBin{}, fmt.Errorf("delta label %q: want min-max or N+", label)
	}
	min, err := strconv.Atoi(lo)
	if err != nil {
		return deltaBin{}, fmt.Errorf("delta label %q: %w", label, err)
	}
	max, err := strconv.Atoi(hi)
	if err != nil {
		return deltaBin{}, fmt.Errorf("delta label %q: %w", label, err)
	}
	if max < min {
		return deltaBin{}, fmt.Errorf("delta label %q: max below min", label)
	}
	return deltaBin{label: label, min: min, max: max}, nil
}

// matches reports whether an event belongs to this advantage bucket.
// Mate opportunities only ever match an open bucket.
func (b deltaBin) matches(ev *opportunity.Event) bool {
	if b.open {
		return ev.Kind == opportunity.KindMate || ev.DeltaCP >= b.min
	}
	if ev.Kind == opportunity.KindMate {
		return false
	}
	return ev.DeltaCP >= b.min && ev.DeltaCP <= b.max
}

// timeBinContains is the membership table for the conversion-time
// axis. The labels are display names, not bounds: each bucket absorbs
// the gap below it so the buckets partition the positive integers.
func timeBinContains(label string, t int) bool {
	switch label {
	case "1-3":
		return t >= 1 && t <= 3
	case "5-7":
		return t >= 4 && t <= 7
	case "9-15":
		return t >= 8 && t <= 15
	case "17+":
		return t >= 16
	}
	// Unknown label: histogram metadata out of sync with this table.
	return false
}

// BinClassifier routes events to cells of a fixed histogram. Bucket
// identity is the label string; ordering is never assumed.
type BinClassifier struct {
	deltaBins []deltaBin
	timeBins  []string
}

// NewBinClassifier parses the advantage labels and records the time
// labels. Malformed advantage labels are a hard error: the classifier
// cannot guess bounds.
func NewBinClassifier(deltaLabels, timeLabels []string) (*BinClassifier, error) {
	if len(deltaLabels) == 0 || len(timeLabels) == 0 {
		return nil, fmt.Errorf("empty bucket label set")
	}
	bins := make([]deltaBin, 0, len(deltaLabels))
	for _, label := range deltaLabels {
		bin, err := parseDeltaLabel(label)
		if err != nil {
			return nil, err
		}
		bins = append(bins, bin)
	}
	return &BinClassifier{
		deltaBins: bins,
		timeBins:  append([]string(nil), timeLabels...),
	}, nil
}

// Classify returns the (advantage, time) cell indices for an event.
// ok is false when the event fits no cell; such events are excluded
// from the histogram.
func (c *BinClassifier) Classify(ev *opportunity.Event) (deltaIdx, timeIdx int, ok bool) {
	deltaIdx = -1
	for i := range c.deltaBins {
		if c.deltaBins[i].matches(ev) {
			deltaIdx = i
			break
		}
	}
	if deltaIdx < 0 {
		return 0, 0, false
	}

	timeIdx = -1
	for i, label := range c.timeBins {
		if timeBinContains(label, ev.TPlies) {
			timeIdx = i
			break
		}
	}
	if timeIdx < 0 {
		return 0, 0, false
	}

	return deltaIdx, timeIdx, true
}
