package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cupart/pkg/cupart"
)

func newRunsCmd(g *globalOptions) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded training runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			client, err := g.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := client.Runs(cmd.Context(), cupart.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}
			if jsonOut {
				type runsItem struct {
					RunID          string  `json:"run_id"`
					CreatedAtUTC   string  `json:"created_at_utc"`
					Representation string  `json:"representation"`
					Specialization string  `json:"specialization,omitempty"`
					Generations    int     `json:"generations"`
					Seed           int64   `json:"seed"`
					FinalScore     float64 `json:"final_score"`
				}
				items := make([]runsItem, 0, len(runs))
				for _, r := range runs {
					items = append(items, runsItem(r))
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			w := table.NewWriter()
			w.SetStyle(table.StyleLight)
			w.AppendHeader(table.Row{"run id", "created", "repr", "class", "gens", "seed", "score"})
			for _, r := range runs {
				w.AppendRow(table.Row{r.RunID, r.CreatedAtUTC, r.Representation, className(r.Specialization), r.Generations, r.Seed, fmt.Sprintf("%.2f", r.FinalScore)})
			}
			fmt.Fprintln(out, w.Render())
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&limit, "limit", 20, "max runs to list")
	f.BoolVar(&jsonOut, "json", false, "emit runs list as JSON")
	cmd.AddCommand(newRunsExportCmd(g))
	return cmd
}

func newRunsExportCmd(g *globalOptions) *cobra.Command {
	var req cupart.ExportRequest
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy a run's artifacts to another directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run_id=%s to=%s\n", summary.RunID, summary.Directory)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.RunID, "run-id", "", "run id")
	f.BoolVar(&req.Latest, "latest", false, "export the most recent run from run index")
	f.StringVar(&req.OutDir, "out", "exports", "export output directory")
	return cmd
}

func className(specialization string) string {
	if specialization == "" {
		return "ALL"
	}
	return specialization
}
