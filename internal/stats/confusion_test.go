package stats

import (
	"math"
	"testing"
)

func TestConfusionConservation(t *testing.T) {
	c := NewConfusion(6)
	pairs := [][2]int{{0, 0}, {0, 1}, {1, 1}, {5, 2}, {5, 5}, {3, 3}, {3, 0}}
	for _, p := range pairs {
		if err := c.Observe(p[0], p[1]); err != nil {
			t.Fatalf("observe %v: %v", p, err)
		}
	}
	var cells uint64
	for x := 0; x < 6; x++ {
		var row uint64
		for y := 0; y < 6; y++ {
			row += c.At(x, y)
		}
		if row != c.Totals()[x] {
			t.Fatalf("row %d sum %d != total %d", x, row, c.Totals()[x])
		}
		cells += row
	}
	if cells != c.Total() || c.Total() != uint64(len(pairs)) {
		t.Fatalf("cells=%d total=%d want %d", cells, c.Total(), len(pairs))
	}
	if c.Trace() != 4 {
		t.Fatalf("trace: got %d want 4", c.Trace())
	}
}

func TestConfusionObserveOutOfRange(t *testing.T) {
	c := NewConfusion(2)
	if err := c.Observe(2, 0); err == nil {
		t.Fatal("expected true class error")
	}
	if err := c.Observe(0, -1); err == nil {
		t.Fatal("expected predicted class error")
	}
	if c.Total() != 0 {
		t.Fatal("rejected observation was counted")
	}
}

func TestConfusionPercents(t *testing.T) {
	c := NewConfusion(3)
	_ = c.Observe(0, 0)
	_ = c.Observe(0, 1)
	_ = c.Observe(1, 1)

	diag := c.DiagonalPercents()
	if diag[0] != 50 || diag[1] != 100 || !math.IsNaN(diag[2]) {
		t.Fatalf("unexpected diagonal: %v", diag)
	}
	if got := c.MeanPercent(); got != 75 {
		t.Fatalf("mean: got %v want 75", got)
	}
	if _, ok := c.RowPercent(2, 2); ok {
		t.Fatal("expected empty row")
	}
}

func TestConfusionResetCloneMerge(t *testing.T) {
	c := NewConfusion(2)
	_ = c.Observe(1, 1)
	clone := c.Clone()
	c.Reset()
	if c.Total() != 0 || clone.Total() != 1 {
		t.Fatalf("reset leaked into clone: c=%d clone=%d", c.Total(), clone.Total())
	}
	if err := c.Merge(clone); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if c.At(1, 1) != 1 {
		t.Fatal("merge lost counts")
	}
	if err := c.Merge(NewConfusion(6)); err == nil {
		t.Fatal("expected arity mismatch")
	}
	if NewConfusion(4).MeanPercent() != 0 {
		t.Fatal("empty matrix mean should be 0")
	}
}
