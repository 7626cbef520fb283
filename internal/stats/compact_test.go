package stats

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
)

func TestParseCompactRoundTrip(t *testing.T) {
	names := ClassNames(6, nil)
	var buf bytes.Buffer
	for gen := uint64(0); gen < 3; gen++ {
		if err := WriteCompact(&buf, sampleConfusion(), names, "Features TPG training", gen); err != nil {
			t.Fatalf("write gen %d: %v", gen, err)
		}
	}
	if err := WriteCompact(&buf, sampleConfusion(), names, "Second run", 0); err != nil {
		t.Fatalf("write second run: %v", err)
	}

	reports, err := ParseCompact(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(reports))
	}
	first := reports[0]
	if first.Title != "Features TPG training" || len(first.Names) != 6 || len(first.Rows) != 3 {
		t.Fatalf("unexpected first report: %+v", first)
	}
	if first.Totals[0] != 4 || len(first.Totals) != 6 {
		t.Fatalf("unexpected totals: %v", first.Totals)
	}
	row := first.Rows[2]
	if row.Generation != 2 || row.Diagonal[0] != 75 || !math.IsNaN(row.Diagonal[2]) || row.Mean != 58.33 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if reports[1].Title != "Second run" || len(reports[1].Rows) != 1 {
		t.Fatalf("unexpected second report: %+v", reports[1])
	}
}

func TestParseCompactRejectsBadRow(t *testing.T) {
	input := "title\n\n  Split NS QT TOT\n    Gen NS QT MOY\n 0 12 x 4\n"
	if _, err := ParseCompact(bytes.NewBufferString(input)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPlotCompactWritesImage(t *testing.T) {
	var buf bytes.Buffer
	for gen := uint64(0); gen < 4; gen++ {
		_ = WriteCompact(&buf, sampleConfusion(), ClassNames(6, nil), "Pixels training", gen)
	}
	reports, err := ParseCompact(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	path := filepath.Join(t.TempDir(), "curves.png")
	if err := PlotCompact(reports[0], path); err != nil {
		t.Fatalf("plot: %v", err)
	}
	if err := PlotCompact(CompactReport{Title: "empty"}, path); err == nil {
		t.Fatal("expected error for a report without rows")
	}
}
