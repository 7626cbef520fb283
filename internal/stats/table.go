package stats

import (
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTable formats a confusion matrix for the console: row percentages,
// the row population, and a footer with the overall score.
func RenderTable(c *Confusion, names []string) string {
	if len(names) != c.Classes() {
		names = ClassNames(c.Classes(), nil)
	}
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.Style().Format.Footer = text.FormatDefault

	header := table.Row{"true \\ pred"}
	for _, name := range names {
		header = append(header, name)
	}
	header = append(header, "TOT")
	w.AppendHeader(header)

	totals := c.Totals()
	for x := 0; x < c.Classes(); x++ {
		row := table.Row{names[x]}
		for y := 0; y < c.Classes(); y++ {
			cell := emptyCell
			if pct, ok := c.RowPercent(x, y); ok {
				cell = formatPercent(pct)
			}
			row = append(row, cell)
		}
		row = append(row, humanize.Comma(int64(totals[x])))
		w.AppendRow(row)
	}

	footer := table.Row{"score"}
	for i := 0; i < c.Classes()-1; i++ {
		footer = append(footer, "")
	}
	footer = append(footer, formatPercent(c.MeanPercent()), humanize.Comma(int64(c.Total())))
	w.AppendFooter(footer)

	configs := make([]table.ColumnConfig, 0, c.Classes()+1)
	for i := 2; i <= c.Classes()+2; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	w.SetColumnConfigs(configs)
	return w.Render()
}
