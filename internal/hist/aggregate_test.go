package hist

import (
	"testing"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

func newTestAggregator(t *testing.T, events []opportunity.Event) *Aggregator {
	t.Helper()
	a, err := NewAggregator(opportunity.DeltaBinLabels(), opportunity.TBinLabels(), events)
	if err != nil {
		t.Fatalf("NewAggregator failed: %v", err)
	}
	return a
}

func missedCP(delta, tPlies int) opportunity.Event {
	return opportunity.Event{Kind: opportunity.KindCP, DeltaCP: delta, TPlies: tPlies}
}

func convertedCP(delta, tPlies int) opportunity.Event {
	return opportunity.Event{Kind: opportunity.KindCP, DeltaCP: delta, TPlies: tPlies, ConvertedActual: 1}
}

func TestAggregator_CountsAndPercentage(t *testing.T) {
	// Cell (100-299, 1-3): 3 missed of 4 total.
	events := []opportunity.Event{
		missedCP(150, 2),
		missedCP(200, 1),
		missedCP(250, 3),
		convertedCP(120, 2),
		// Different cell entirely.
		missedCP(600, 10),
	}
	a := newTestAggregator(t, events)

	if got := a.Total(0, 0); got != 4 {
		t.Errorf("Total(0,0) = %d, want 4", got)
	}
	if got := a.Missed(0, 0); got != 3 {
		t.Errorf("Missed(0,0) = %d, want 3", got)
	}
	if got := a.Percentage(0, 0); got != 75 {
		t.Errorf("Percentage(0,0) = %d, want 75", got)
	}
	if got := a.Value(0, 0, ModeCount); got != 3 {
		t.Errorf("Value(count) = %d, want 3", got)
	}
	if got := a.Value(0, 0, ModePercentage); got != 75 {
		t.Errorf("Value(percentage) = %d, want 75", got)
	}

	// The 500-799 x 9-15 cell has the single other event.
	if got := a.Total(2, 2); got != 1 {
		t.Errorf("Total(2,2) = %d, want 1", got)
	}
}

func TestAggregator_EmptyCell(t *testing.T) {
	a := newTestAggregator(t, nil)

	if got := a.Percentage(1, 1); got != 0 {
		t.Errorf("empty cell percentage = %d, want 0", got)
	}
	if got := a.Total(1, 1); got != 0 {
		t.Errorf("empty cell total = %d, want 0", got)
	}
	if got := a.Max(ModeCount); got != 1 {
		t.Errorf("empty grid Max = %d, want 1 (zero-division guard)", got)
	}
	if got := a.Intensity(1, 1, ModeCount); got != 0 {
		t.Errorf("empty cell intensity = %v, want 0", got)
	}
}

func TestAggregator_Intensity(t *testing.T) {
	events := []opportunity.Event{
		missedCP(150, 2),
		missedCP(160, 2),
		missedCP(170, 2),
		missedCP(400, 2), // different row, 1 missed
	}
	a := newTestAggregator(t, events)

	if got := a.Max(ModeCount); got != 3 {
		t.Fatalf("Max = %d, want 3", got)
	}
	if got := a.Intensity(0, 0, ModeCount); got != 1.0 {
		t.Errorf("Intensity(max cell) = %v, want 1.0", got)
	}
	want := 1.0 / 3.0
	if got := a.Intensity(1, 0, ModeCount); got != want {
		t.Errorf("Intensity(1,0) = %v, want %v", got, want)
	}
}

func TestAggregator_MissedEventsDrilldown(t *testing.T) {
	events := []opportunity.Event{
		missedCP(150, 2),
		convertedCP(160, 2),
		missedCP(170, 2),
	}
	a := newTestAggregator(t, events)

	missed := a.MissedEvents(0, 0)
	if len(missed) != 2 {
		t.Fatalf("MissedEvents returned %d events, want 2", len(missed))
	}
	for _, ev := range missed {
		if !ev.IsMissed() {
			t.Error("drill-down list contains a converted event")
		}
	}

	// Converted events still count toward the denominator.
	if got := a.Percentage(0, 0); got != 67 {
		t.Errorf("Percentage = %d, want 67", got)
	}
}

func TestAggregator_SkipsUnclassifiable(t *testing.T) {
	events := []opportunity.Event{
		missedCP(150, 2),
		missedCP(50, 2), // below every bucket
	}
	a := newTestAggregator(t, events)

	if got := a.Skipped(); got != 1 {
		t.Errorf("Skipped = %d, want 1", got)
	}
	if got := a.Total(0, 0); got != 1 {
		t.Errorf("Total(0,0) = %d, want 1", got)
	}
}

func TestAggregator_Counts(t *testing.T) {
	events := []opportunity.Event{
		missedCP(150, 2),
		convertedCP(160, 2),
		missedCP(900, 20),
	}
	a := newTestAggregator(t, events)

	counts := a.Counts()
	if len(counts) != 4 || len(counts[0]) != 4 {
		t.Fatalf("Counts shape = %dx%d, want 4x4", len(counts), len(counts[0]))
	}
	if counts[0][0] != 2 {
		t.Errorf("counts[0][0] = %d, want 2", counts[0][0])
	}
	if counts[3][3] != 1 {
		t.Errorf("counts[3][3] = %d, want 1", counts[3][3])
	}
}

func TestDiffScore(t *testing.T) {
	player := newTestAggregator(t, []opportunity.Event{
		missedCP(150, 2),
		convertedCP(160, 2), // player: 50% missed in (0,0)
	})
	field := newTestAggregator(t, []opportunity.Event{
		missedCP(150, 2),
		missedCP(160, 2),
		missedCP(170, 2),
		convertedCP(180, 2), // field: 75% missed in (0,0)
	})

	score, ok := DiffScore(player, field, 0, 0)
	if !ok {
		t.Fatal("DiffScore returned no-data for a populated cell")
	}
	if score != 25 {
		t.Errorf("score = %v, want 25 (player outperforms field)", score)
	}
}

func TestDiffScore_NoData(t *testing.T) {
	player := newTestAggregator(t, nil)
	field := newTestAggregator(t, nil)

	if _, ok := DiffScore(player, field, 0, 0); ok {
		t.Error("DiffScore returned data for a cell empty on both sides")
	}
}

func TestDiffScore_ZeroIsNotNoData(t *testing.T) {
	// Both sides 100% missed: score 0, but the cell has data.
	player := newTestAggregator(t, []opportunity.Event{missedCP(150, 2)})
	field := newTestAggregator(t, []opportunity.Event{missedCP(160, 2)})

	score, ok := DiffScore(player, field, 0, 0)
	if !ok {
		t.Fatal("equal percentages flagged as no-data")
	}
	if score != 0 {
		t.Errorf("score = %v, want 0", score)
	}
}

func TestDiffScore_OneSidedCell(t *testing.T) {
	// Player has no events in the cell but the field does: the
	// player's percentage is 0, not no-data.
	player := newTestAggregator(t, nil)
	field := newTestAggregator(t, []opportunity.Event{missedCP(150, 2)})

	score, ok := DiffScore(player, field, 0, 0)
	if !ok {
		t.Fatal("one-sided cell flagged as no-data")
	}
	if score != 50 {
		t.Errorf("score = %v, want 50 (clamped field 100 - player 0)", score)
	}
}

func TestDiffScore_Clamped(t *testing.T) {
	// Field 100% missed, player 0% missed: raw difference 100, clamped to 50.
	player := newTestAggregator(t, []opportunity.Event{convertedCP(150, 2)})
	field := newTestAggregator(t, []opportunity.Event{
		missedCP(150, 2), missedCP(160, 2),
	})

	score, ok := DiffScore(player, field, 0, 0)
	if !ok {
		t.Fatal("DiffScore returned no-data")
	}
	if score != 50 {
		t.Errorf("score = %v, want clamp at 50", score)
	}
}
