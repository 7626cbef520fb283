package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cupart/internal/stats"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with classification report files",
	}
	cmd.AddCommand(newReportPlotCmd())
	return cmd
}

func newReportPlotCmd() *cobra.Command {
	var (
		compactPath string
		outDir      string
	)
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot per-class validation scores from a compact report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reports, err := stats.ReadCompactFile(compactPath)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				return fmt.Errorf("no reports found in %s", compactPath)
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for i, report := range reports {
				path := filepath.Join(outDir, plotFileName(report.Title, i))
				if err := stats.PlotCompact(report, path); err != nil {
					return fmt.Errorf("plot %q: %w", report.Title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "plotted title=%s generations=%d to=%s\n", report.Title, len(report.Rows), path)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&compactPath, "compact", compactReportFile, "compact report file")
	f.StringVar(&outDir, "out", "plots", "output directory for PNG charts")
	return cmd
}

// plotFileName numbers charts since a compact file may hold several runs
// with the same title.
func plotFileName(title string, index int) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, title)
	if clean == "" {
		clean = "report"
	}
	return fmt.Sprintf("%s_%d.png", clean, index)
}
