package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotCompact renders the per-class validation recall of a compact report
// as one line per class plus the mean. The image format follows the path
// extension (png, svg, pdf).
func PlotCompact(report CompactReport, path string) error {
	if len(report.Rows) == 0 {
		return fmt.Errorf("report %q has no generations", report.Title)
	}
	p := plot.New()
	p.Title.Text = report.Title
	p.X.Label.Text = "generation"
	p.Y.Label.Text = "validation recall (%)"
	p.Y.Min = 0
	p.Y.Max = 100
	p.Add(plotter.NewGrid())

	names := report.Names
	if len(names) == 0 {
		names = ClassNames(len(report.Rows[0].Diagonal), nil)
	}
	for class, name := range names {
		xys := make(plotter.XYs, 0, len(report.Rows))
		for _, row := range report.Rows {
			if class >= len(row.Diagonal) || math.IsNaN(row.Diagonal[class]) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(row.Generation), Y: row.Diagonal[class]})
		}
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(class)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
	}

	mean := make(plotter.XYs, 0, len(report.Rows))
	for _, row := range report.Rows {
		mean = append(mean, plotter.XY{X: float64(row.Generation), Y: row.Mean})
	}
	line, err := plotter.NewLine(mean)
	if err != nil {
		return err
	}
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("MOY", line)
	p.Legend.Top = true

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
