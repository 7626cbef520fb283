package stats

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"cupart/internal/logging"
	"cupart/internal/split"
)

const (
	colWidth   = 7
	rowLabel   = 4
	ruleLine   = "-----------------------------------------------------"
	emptyCell  = "-"
	othersName = "OTHERS"
)

// ClassNames returns the report column names for a matrix of the given
// arity. Binary matrices are named after the specialization: index 0 is
// OTHERS and index 1 the positive set.
func ClassNames(classes int, spec *split.Specialization) []string {
	if classes == 2 && spec != nil {
		return []string{othersName, spec.Name()}
	}
	names := make([]string, classes)
	for i := range names {
		if i < split.Count {
			names[i] = split.Split(i).String()
		} else {
			names[i] = strconv.Itoa(i)
		}
	}
	return names
}

// Reporter appends generation reports to files. Write failures are logged
// and never returned, so a bad report path cannot stop training.
type Reporter struct {
	Title  string
	Names  []string
	logger *slog.Logger
}

func NewReporter(title string, names []string) *Reporter {
	return &Reporter{
		Title:  title,
		Names:  names,
		logger: logging.New("stats"),
	}
}

func (r *Reporter) Report(c *Confusion, generation uint64, path string, readable bool) {
	if err := r.report(c, generation, path, readable); err != nil {
		r.logger.Warn("unable to write classification report", "path", path, "generation", generation, "error", err)
	}
}

func (r *Reporter) report(c *Confusion, generation uint64, path string, readable bool) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	names := r.Names
	if len(names) != c.Classes() {
		names = ClassNames(c.Classes(), nil)
	}
	if readable {
		err = WriteReadable(f, c, names, generation)
	} else {
		err = WriteCompact(f, c, names, r.Title, generation)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// WriteReadable writes one confusion block: row x column y is the percentage
// of true class x predicted as y, followed by the row population.
func WriteReadable(w io.Writer, c *Confusion, names []string, generation uint64) error {
	if len(names) != c.Classes() {
		return fmt.Errorf("%d names for %d classes", len(names), c.Classes())
	}
	var b strings.Builder
	b.WriteString(ruleLine + "\n")
	fmt.Fprintf(&b, "Gen: %d | Score: %s\n\n", generation, formatPercent(c.MeanPercent()))

	b.WriteString(strings.Repeat(" ", rowLabel))
	for _, name := range names {
		fmt.Fprintf(&b, "%*s", colWidth, name)
	}
	fmt.Fprintf(&b, "%*s\n", colWidth, "TOT")

	totals := c.Totals()
	for x := 0; x < c.Classes(); x++ {
		fmt.Fprintf(&b, "%*d", rowLabel, x)
		for y := 0; y < c.Classes(); y++ {
			cell := emptyCell
			if pct, ok := c.RowPercent(x, y); ok {
				cell = formatPercent(pct)
			}
			fmt.Fprintf(&b, "%*s", colWidth, cell)
		}
		fmt.Fprintf(&b, "%*d\n", colWidth, totals[x])
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCompact writes one row per generation: the per-class diagonal
// percentages and their mean. Generation 0 is preceded by the title, the
// class populations, and the column header.
func WriteCompact(w io.Writer, c *Confusion, names []string, title string, generation uint64) error {
	if len(names) != c.Classes() {
		return fmt.Errorf("%d names for %d classes", len(names), c.Classes())
	}
	var b strings.Builder
	if generation == 0 {
		b.WriteString(title + "\n\n")
		fmt.Fprintf(&b, "%*s", colWidth, "Split")
		for _, name := range names {
			fmt.Fprintf(&b, "%*s", colWidth, name)
		}
		fmt.Fprintf(&b, "%*s\n", colWidth, "TOT")

		fmt.Fprintf(&b, "%*s", colWidth, "Total")
		for _, n := range c.Totals() {
			fmt.Fprintf(&b, "%*d", colWidth, n)
		}
		fmt.Fprintf(&b, "%*d\n\n", colWidth, c.Total())

		fmt.Fprintf(&b, "%*s", colWidth, "Gen")
		for _, name := range names {
			fmt.Fprintf(&b, "%*s", colWidth, name)
		}
		fmt.Fprintf(&b, "%*s\n", colWidth, "MOY")
	}

	fmt.Fprintf(&b, "%*d", colWidth, generation)
	for _, pct := range c.DiagonalPercents() {
		cell := emptyCell
		if !math.IsNaN(pct) {
			cell = formatPercent(pct)
		}
		fmt.Fprintf(&b, "%*s", colWidth, cell)
	}
	fmt.Fprintf(&b, "%*s\n", colWidth, formatPercent(c.MeanPercent()))
	_, err := io.WriteString(w, b.String())
	return err
}

// formatPercent renders four significant digits.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
