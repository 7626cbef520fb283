// Package stats accumulates classification outcomes and renders them as
// generation reports, plots, console tables and run artifacts.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Confusion is a classes x classes matrix of (true class, predicted class)
// counts with per-true-class totals. The sum of all cells always equals the
// sum of the totals.
type Confusion struct {
	classes int
	cells   []uint64
	totals  []uint64
}

func NewConfusion(classes int) *Confusion {
	if classes <= 0 {
		classes = 1
	}
	return &Confusion{
		classes: classes,
		cells:   make([]uint64, classes*classes),
		totals:  make([]uint64, classes),
	}
}

func (c *Confusion) Classes() int {
	return c.classes
}

func (c *Confusion) Observe(trueClass, predicted int) error {
	if trueClass < 0 || trueClass >= c.classes {
		return fmt.Errorf("true class %d outside [0,%d)", trueClass, c.classes)
	}
	if predicted < 0 || predicted >= c.classes {
		return fmt.Errorf("predicted class %d outside [0,%d)", predicted, c.classes)
	}
	c.cells[trueClass*c.classes+predicted]++
	c.totals[trueClass]++
	return nil
}

func (c *Confusion) At(trueClass, predicted int) uint64 {
	return c.cells[trueClass*c.classes+predicted]
}

func (c *Confusion) Reset() {
	clear(c.cells)
	clear(c.totals)
}

// Trace is the number of correct predictions.
func (c *Confusion) Trace() uint64 {
	var sum uint64
	for i := 0; i < c.classes; i++ {
		sum += c.At(i, i)
	}
	return sum
}

func (c *Confusion) Total() uint64 {
	var sum uint64
	for _, v := range c.totals {
		sum += v
	}
	return sum
}

func (c *Confusion) Totals() []uint64 {
	return append([]uint64(nil), c.totals...)
}

func (c *Confusion) Clone() *Confusion {
	return &Confusion{
		classes: c.classes,
		cells:   append([]uint64(nil), c.cells...),
		totals:  append([]uint64(nil), c.totals...),
	}
}

func (c *Confusion) Merge(other *Confusion) error {
	if other.classes != c.classes {
		return fmt.Errorf("cannot merge %d-class matrix into %d-class matrix", other.classes, c.classes)
	}
	for i, v := range other.cells {
		c.cells[i] += v
	}
	for i, v := range other.totals {
		c.totals[i] += v
	}
	return nil
}

// RowPercent is the share of trueClass samples predicted as predicted, in
// percent. ok is false when trueClass has no samples.
func (c *Confusion) RowPercent(trueClass, predicted int) (pct float64, ok bool) {
	n := c.totals[trueClass]
	if n == 0 {
		return 0, false
	}
	return float64(c.At(trueClass, predicted)) / float64(n) * 100, true
}

// DiagonalPercents returns the per-class recall in percent; classes without
// samples are NaN.
func (c *Confusion) DiagonalPercents() []float64 {
	out := make([]float64, c.classes)
	for i := range out {
		pct, ok := c.RowPercent(i, i)
		if !ok {
			pct = math.NaN()
		}
		out[i] = pct
	}
	return out
}

// MeanPercent averages the diagonal percentages over classes with at least
// one sample. It is 0 for an empty matrix.
func (c *Confusion) MeanPercent() float64 {
	present := make([]float64, 0, c.classes)
	for _, pct := range c.DiagonalPercents() {
		if !math.IsNaN(pct) {
			present = append(present, pct)
		}
	}
	if len(present) == 0 {
		return 0
	}
	return stat.Mean(present, nil)
}
