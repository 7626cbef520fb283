package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"cupart/internal/cascade"
	"cupart/internal/dataset"
	"cupart/internal/policy"
	"cupart/internal/split"
	"cupart/internal/stats"
	"cupart/internal/targets"
)

const (
	inferModeLinear    = "linear"
	inferModeVote      = "vote"
	inferModeWaterfall = "waterfall"
)

type inferOptions struct {
	modelDir          string
	order             string
	fallback          string
	mode              string
	representation    string
	datasetDir        string
	cuWidth           int
	cuHeight          int
	features          int
	csvHeader         bool
	csvLeadingColumns int
	databaseElements  uint64
	targets           int
	evaluations       int
	samplingStrategy  string
	workers           int
	seed              int64
}

func newInferCmd(_ *globalOptions) *cobra.Command {
	opts := inferOptions{}
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Score a cascade of binary classifiers on freshly drawn samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfer(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.modelDir, "models", "models", "directory holding <CLASS>.dot model artifacts")
	f.StringVar(&opts.order, "order", "TTV,NS,QT,BTH,BTV", "cascade priority order")
	f.StringVar(&opts.fallback, "fallback", "auto", "class returned when no model fires: auto|none|<CLASS>")
	f.StringVar(&opts.mode, "mode", inferModeLinear, "decision rule: linear|vote|waterfall (waterfall reads NS, QT, BTH+TTH, TTH and TTV models; --order and --fallback do not apply)")
	f.StringVar(&opts.representation, "representation", representationFeatures, "sample representation: pixels|features")
	f.StringVar(&opts.datasetDir, "dataset-dir", "", "directory holding <index>.bin or <index>.csv records")
	f.IntVar(&opts.cuWidth, "cu-width", 0, "CU width in pixels (pixels representation)")
	f.IntVar(&opts.cuHeight, "cu-height", 0, "CU height in pixels (pixels representation)")
	f.IntVar(&opts.features, "features", 0, "features per record, QP excluded (features representation)")
	f.BoolVar(&opts.csvHeader, "csv-header", false, "feature files start with a header line")
	f.IntVar(&opts.csvLeadingColumns, "csv-leading-columns", 0, "columns skipped before the QP column")
	f.Uint64Var(&opts.databaseElements, "database-elements", 0, "number of records in the dataset")
	f.IntVar(&opts.targets, "targets", 1000, "samples drawn per evaluation")
	f.IntVar(&opts.evaluations, "evaluations", 1, "number of evaluations")
	f.StringVar(&opts.samplingStrategy, "sampling-strategy", string(targets.WithReplacement), "with_replacement|without_replacement")
	f.IntVar(&opts.workers, "workers", runtime.NumCPU(), "parallel decision workers")
	f.Int64Var(&opts.seed, "seed", 1, "random seed")
	_ = cmd.MarkFlagRequired("dataset-dir")
	_ = cmd.MarkFlagRequired("database-elements")
	return cmd
}

func runInfer(ctx context.Context, out io.Writer, opts inferOptions) error {
	order, err := cascade.ParseOrder(opts.order)
	if err != nil {
		return err
	}
	strategy, err := targets.ParseStrategy(opts.samplingStrategy)
	if err != nil {
		return err
	}
	if opts.targets <= 0 {
		return errors.New("targets must be > 0")
	}
	cfg := cascade.ScoreConfig{
		Targets:          opts.targets,
		Evaluations:      opts.evaluations,
		DatabaseElements: opts.databaseElements,
		Strategy:         strategy,
		Workers:          opts.workers,
	}
	switch opts.representation {
	case representationPixels:
		loader := dataset.NewBinaryLoader(opts.datasetDir, opts.cuWidth, opts.cuHeight)
		return infer[dataset.Pixels](ctx, out, opts, order, loader, cfg)
	case representationFeatures:
		loader := dataset.NewCSVLoader(opts.datasetDir, opts.features, dataset.CSVLayout{
			Header:         opts.csvHeader,
			LeadingColumns: opts.csvLeadingColumns,
		})
		return infer[dataset.Features](ctx, out, opts, order, loader, cfg)
	default:
		return fmt.Errorf("unsupported representation: %q", opts.representation)
	}
}

func infer[S dataset.Sample](ctx context.Context, out io.Writer, opts inferOptions, order []split.Split, loader dataset.Loader[S], cfg cascade.ScoreConfig) error {
	models := cascade.ModelLoaderFunc[S](policy.LoadPolicy[S])
	rng := rand.New(rand.NewSource(opts.seed))

	var decider cascade.Decider[S]
	switch opts.mode {
	case inferModeLinear:
		bindings, err := cascade.LoadBindings[S](opts.modelDir, order, models)
		if err != nil {
			return err
		}
		fallback, err := cascade.ParseFallback(opts.fallback, order)
		if err != nil {
			return err
		}
		decider, err = cascade.NewLinear(bindings, fallback)
		if err != nil {
			return err
		}
	case inferModeVote:
		bindings, err := cascade.LoadBindings[S](opts.modelDir, order, models)
		if err != nil {
			return err
		}
		vote, err := cascade.NewVote(bindings)
		if err != nil {
			return err
		}
		if err := printVoteTally(ctx, out, vote, loader, rng, cfg); err != nil {
			return err
		}
		decider = vote
	case inferModeWaterfall:
		tree, err := cascade.LoadDirectionTree[S](opts.modelDir, models)
		if err != nil {
			return err
		}
		decider = tree
	default:
		return fmt.Errorf("unsupported infer mode: %q", opts.mode)
	}

	result, err := cascade.Score(ctx, decider, loader, rng, cfg)
	if err != nil {
		return err
	}
	fmt.Fprint(out, stats.RenderTable(result.Confusion, stats.ClassNames(split.Count, nil)))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "evaluations=%d samples=%s declined=%s mean_score=%.2f\n",
		len(result.Scores),
		humanize.Comma(int64(result.Confusion.Total())),
		humanize.Comma(int64(result.Declined)),
		stat.Mean(result.Scores, nil),
	)
	return nil
}

// printVoteTally runs every model on one drawn pool and reports how many
// models fired per sample.
func printVoteTally[S dataset.Sample](ctx context.Context, out io.Writer, vote *cascade.Vote[S], loader dataset.Loader[S], rng *rand.Rand, cfg cascade.ScoreConfig) error {
	pool, err := targets.Draw(ctx, loader, rng, targets.DrawRequest{
		Bucket:           targets.BucketValidation,
		Count:            cfg.Targets,
		DatabaseElements: cfg.DatabaseElements,
		Strategy:         cfg.Strategy,
	})
	if err != nil {
		return err
	}
	var tally cascade.VoteTally
	for i := 0; i < pool.Len(); i++ {
		sample, truth := pool.At(i)
		r, err := vote.Run(ctx, sample)
		if err != nil {
			return err
		}
		tally.Add(truth, r)
	}

	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"class", "hit", "silent", "ambiguous"})
	for _, class := range split.All() {
		w.AppendRow(table.Row{class.String(), tally.Hit[class], tally.Silent[class], tally.Ambiguous[class]})
	}
	hist := ""
	for k, n := range tally.Histogram {
		hist += fmt.Sprintf(" %d:%s", k, humanize.Comma(int64(n)))
	}
	w.AppendFooter(table.Row{"fired", hist, "", ""})
	fmt.Fprintln(out, w.Render())
	return nil
}
