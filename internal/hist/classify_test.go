package hist

import (
	"testing"

	"github.com/iklasky/tactic-trainer/internal/opportunity"
)

func newTestClassifier(t *testing.T) *BinClassifier {
	t.Helper()
	c, err := NewBinClassifier(opportunity.DeltaBinLabels(), opportunity.TBinLabels())
	if err != nil {
		t.Fatalf("NewBinClassifier failed: %v", err)
	}
	return c
}

func cpEvent(delta, tPlies int) opportunity.Event {
	return opportunity.Event{Kind: opportunity.KindCP, DeltaCP: delta, TPlies: tPlies}
}

func mateEvent(mateIn, tPlies int) opportunity.Event {
	return opportunity.Event{Kind: opportunity.KindMate, MateIn: mateIn, TPlies: tPlies}
}

func TestClassify_DeltaBuckets(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		name      string
		ev        opportunity.Event
		wantDelta string
	}{
		{"cutoff floor", cpEvent(100, 1), "100-299"},
		{"inside first", cpEvent(250, 1), "100-299"},
		{"first upper bound", cpEvent(299, 1), "100-299"},
		{"second lower bound", cpEvent(300, 1), "300-499"},
		{"third bucket", cpEvent(650, 1), "500-799"},
		{"open bucket", cpEvent(800, 1), "800+"},
		{"far past open", cpEvent(2500, 1), "800+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			di, _, ok := c.Classify(&tt.ev)
			if !ok {
				t.Fatal("Classify returned ok=false")
			}
			if got := opportunity.DeltaBinLabels()[di]; got != tt.wantDelta {
				t.Errorf("delta bucket = %s, want %s", got, tt.wantDelta)
			}
		})
	}
}

func TestClassify_MateAlwaysTopBucket(t *testing.T) {
	c := newTestClassifier(t)

	// delta_cp is not meaningful for mate events; any value must still
	// route to the open bucket.
	for _, delta := range []int{0, 150, 450, 799, 5000} {
		ev := mateEvent(3, 5)
		ev.DeltaCP = delta
		di, _, ok := c.Classify(&ev)
		if !ok {
			t.Fatalf("Classify(mate, delta=%d) returned ok=false", delta)
		}
		if got := opportunity.DeltaBinLabels()[di]; got != "800+" {
			t.Errorf("mate with delta %d in bucket %s, want 800+", delta, got)
		}
	}
}

func TestClassify_TimeBuckets(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		tPlies   int
		wantTime string
	}{
		{1, "1-3"},
		{3, "1-3"},
		{4, "5-7"}, // boundary absorbed by the wider bucket
		{5, "5-7"},
		{7, "5-7"},
		{8, "9-15"}, // boundary absorbed
		{15, "9-15"},
		{16, "17+"}, // boundary absorbed
		{17, "17+"},
		{40, "17+"},
	}

	for _, tt := range tests {
		ev := cpEvent(200, tt.tPlies)
		_, ti, ok := c.Classify(&ev)
		if !ok {
			t.Fatalf("Classify(t=%d) returned ok=false", tt.tPlies)
		}
		if got := opportunity.TBinLabels()[ti]; got != tt.wantTime {
			t.Errorf("t_plies %d in bucket %s, want %s", tt.tPlies, got, tt.wantTime)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := newTestClassifier(t)
	ev := cpEvent(420, 9)

	d1, t1, ok1 := c.Classify(&ev)
	d2, t2, ok2 := c.Classify(&ev)
	if !ok1 || !ok2 || d1 != d2 || t1 != t2 {
		t.Errorf("classification not deterministic: (%d,%d,%v) vs (%d,%d,%v)",
			d1, t1, ok1, d2, t2, ok2)
	}
}

func TestClassify_EndToEnd(t *testing.T) {
	c := newTestClassifier(t)

	ev := cpEvent(250, 6)
	di, ti, ok := c.Classify(&ev)
	if !ok {
		t.Fatal("Classify returned ok=false")
	}
	if opportunity.DeltaBinLabels()[di] != "100-299" || opportunity.TBinLabels()[ti] != "5-7" {
		t.Errorf("cp 250 t 6 -> (%s, %s), want (100-299, 5-7)",
			opportunity.DeltaBinLabels()[di], opportunity.TBinLabels()[ti])
	}

	mate := mateEvent(3, 3)
	mate.DeltaCP = 250
	di, _, ok = c.Classify(&mate)
	if !ok {
		t.Fatal("Classify(mate) returned ok=false")
	}
	if opportunity.DeltaBinLabels()[di] != "800+" {
		t.Errorf("mate_in 3 -> %s, want 800+", opportunity.DeltaBinLabels()[di])
	}
}

func TestClassify_BelowCutoffExcluded(t *testing.T) {
	c := newTestClassifier(t)
	ev := cpEvent(50, 2)
	if _, _, ok := c.Classify(&ev); ok {
		t.Error("delta 50 classified, want excluded")
	}
}

func TestNewBinClassifier_BadLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
	}{
		{"empty set", nil},
		{"no separator", []string{"100to299"}},
		{"non-numeric", []string{"low-high"}},
		{"inverted range", []string{"300-100"}},
		{"bad open", []string{"eight hundred+"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBinClassifier(tt.labels, opportunity.TBinLabels()); err == nil {
				t.Errorf("NewBinClassifier(%v) succeeded, want error", tt.labels)
			}
		})
	}
}

func TestTimeBinContains_UnknownLabel(t *testing.T) {
	if timeBinContains("2-6", 3) {
		t.Error("unknown time label matched; membership must be table-driven")
	}
}
