package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cupart/internal/model"
	"cupart/pkg/cupart"
)

func newHistoryCmd(g *globalOptions) *cobra.Command {
	var req cupart.HistoryRequest
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the validation history of a run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			history, err := client.History(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg := history.Config; cfg != nil {
				fmt.Fprintf(out, "run_id=%s representation=%s class=%s population=%d seed=%d\n",
					history.RunID, cfg.Representation, className(cfg.Specialization), cfg.PopulationSize, cfg.Seed)
			}
			w := table.NewWriter()
			w.SetStyle(table.StyleLight)
			w.AppendHeader(table.Row{"gen", "best fitness", "score", "correct / total"})
			for _, record := range history.Records {
				w.AppendRow(table.Row{record.Generation, fmt.Sprintf("%.0f", record.BestFitness), fmt.Sprintf("%.2f", record.Score), perClass(record)})
			}
			fmt.Fprintln(out, w.Render())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.RunID, "run-id", "", "run id")
	f.BoolVar(&req.Latest, "latest", false, "show the most recent run from run index")
	f.IntVar(&req.Limit, "limit", 0, "max generations to show (0: all)")
	return cmd
}

func perClass(record model.ValidationRecord) string {
	parts := make([]string, len(record.Totals))
	for i, total := range record.Totals {
		var correct uint64
		if i < len(record.Correct) {
			correct = record.Correct[i]
		}
		parts[i] = humanize.Comma(int64(correct)) + "/" + humanize.Comma(int64(total))
	}
	return strings.Join(parts, " ")
}
