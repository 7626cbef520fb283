package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"cupart/internal/cascade"
	"cupart/internal/dataset"
	"cupart/internal/evo"
	"cupart/internal/logging"
	"cupart/internal/platform"
	"cupart/internal/scape"
	"cupart/internal/split"
	"cupart/internal/stats"
	"cupart/internal/storage"
	"cupart/internal/targets"
)

const (
	readableReportFile = "fullClassifTable.txt"
	compactReportFile  = "fileClassificationTable.txt"
)

func newTrainCmd(g *globalOptions) *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		flagCfg     = defaultTrainConfig()
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier on a CU dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveTrainConfig(cmd, configPath)
			if err != nil {
				return err
			}
			return runTrain(cmd.Context(), cmd, g, cfg, metricsAddr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "run config file (YAML or JSON); explicit flags take precedence")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while training, e.g. :9090")
	bindTrainFlags(f, &flagCfg)
	return cmd
}

func runTrain(ctx context.Context, cmd *cobra.Command, g *globalOptions, cfg trainConfig, metricsAddr string) error {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	logger := logging.New("cupartctl").With("run_id", cfg.RunID)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := targets.NewMetrics(registry)
	if metricsAddr != "" {
		stop, err := serveMetrics(metricsAddr, registry, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	client, err := g.newClient()
	if err != nil {
		return err
	}
	defer client.Close()
	store, err := client.Store(ctx)
	if err != nil {
		return err
	}

	spec, err := cfg.specialization()
	if err != nil {
		return err
	}
	var labeler scape.Labeler = scape.SixWay{}
	if spec != nil {
		binary, err := scape.NewBinary(*spec)
		if err != nil {
			return err
		}
		labeler = binary
	}

	var result platform.Result
	switch cfg.Representation {
	case representationPixels:
		loader := dataset.NewBinaryLoader(cfg.DatasetDir, cfg.CUWidth, cfg.CUHeight)
		result, err = train[dataset.Pixels](ctx, cfg, spec, loader, loader.Width*loader.Height, labeler, metrics, store)
	default:
		loader := dataset.NewCSVLoader(cfg.DatasetDir, cfg.Features, dataset.CSVLayout{
			Header:         cfg.CSVHeader,
			LeadingColumns: cfg.CSVLeadingColumns,
		})
		result, err = train[dataset.Features](ctx, cfg, spec, loader, loader.NumFeatures+1, labeler, metrics, store)
	}
	if err != nil {
		return err
	}

	runDir, err := stats.WriteRunArtifacts(client.ArtifactsDir(), stats.RunArtifacts{
		Config:            cfg.runConfig(),
		ValidationHistory: result.Validation,
		BestByGeneration:  result.BestByGeneration,
		FinalScore:        result.FinalScore,
		BestPolicyDOT:     string(result.BestDOT),
	})
	if err != nil {
		return fmt.Errorf("write run artifacts: %w", err)
	}
	if err := stats.AppendRunIndex(client.ArtifactsDir(), stats.RunIndexEntry{
		RunID:          cfg.RunID,
		Representation: cfg.Representation,
		Specialization: specName(spec),
		Generations:    cfg.Generations,
		Seed:           cfg.Seed,
		FinalScore:     result.FinalScore,
		CreatedAtUTC:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("append run index: %w", err)
	}

	modelPath := modelArtifactPath(cfg.ModelDir, spec)
	if err := os.MkdirAll(cfg.ModelDir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(modelPath, result.BestDOT, 0o644); err != nil {
		return fmt.Errorf("export model: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s generations=%d best_fitness=%.0f final_score=%.2f artifacts=%s model=%s\n",
		cfg.RunID, len(result.BestByGeneration), result.Best.Fitness, result.FinalScore, runDir, modelPath)
	return nil
}

func train[S dataset.Sample](ctx context.Context, cfg trainConfig, spec *split.Specialization, loader dataset.Loader[S], inputs int, labeler scape.Labeler, metrics *targets.Metrics, store storage.Store) (platform.Result, error) {
	cache, err := targets.NewCache[S](loader, cfg.targetsConfig(), targets.CacheOptions{Metrics: metrics})
	if err != nil {
		return platform.Result{}, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	mutation, err := evo.OperatorByName(cfg.Mutation, rng, cfg.MutationSigma)
	if err != nil {
		return platform.Result{}, err
	}
	selector, err := evo.SelectorByName(cfg.Selection)
	if err != nil {
		return platform.Result{}, err
	}
	engine, err := evo.NewHillClimber(evo.HillClimberConfig{
		PopulationSize: cfg.PopulationSize,
		EliteCount:     cfg.EliteCount,
		Actions:        labeler.NumActions(),
		Inputs:         inputs,
		Selector:       selector,
		Mutation:       mutation,
		Seed:           cfg.Seed,
	})
	if err != nil {
		return platform.Result{}, err
	}

	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return platform.Result{}, err
	}
	trainer, err := platform.NewTrainer[S](cache, engine, labeler, platform.TrainerConfig{
		RunID:              cfg.RunID,
		Representation:     cfg.Representation,
		Specialization:     specName(spec),
		Generations:        cfg.Generations,
		Workers:            cfg.Workers,
		StepsPerEvaluation: cfg.StepsPerEvaluation,
		Seed:               cfg.Seed,
		ReadableReport:     filepath.Join(cfg.ReportDir, readableReportFile),
		CompactReport:      filepath.Join(cfg.ReportDir, compactReportFile),
	}, platform.TrainerOptions{
		Reporter: stats.NewReporter(policyName(spec), labeler.Names()),
		Store:    store,
	})
	if err != nil {
		return platform.Result{}, err
	}
	return trainer.Run(ctx)
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func specName(spec *split.Specialization) string {
	if spec == nil {
		return ""
	}
	return spec.Name()
}

// policyName names six-way policies ALL and binary policies after their
// positive set.
func policyName(spec *split.Specialization) string {
	if spec == nil {
		return "ALL"
	}
	return spec.Name()
}

// modelArtifactPath is where a trained policy is exported. Single-class
// specializations land where the cascade loader looks for them.
func modelArtifactPath(dir string, spec *split.Specialization) string {
	if spec != nil && len(spec.Positive) == 1 {
		return cascade.ModelPath(dir, spec.Positive[0])
	}
	return filepath.Join(dir, policyName(spec)+".dot")
}

func (c trainConfig) runConfig() stats.RunConfig {
	return stats.RunConfig{
		RunID:                c.RunID,
		Representation:       c.Representation,
		Specialization:       c.Specialization,
		DatasetDir:           c.DatasetDir,
		DatabaseElements:     c.DatabaseElements,
		TrainingTargets:      c.TrainingTargets,
		ValidationTargets:    c.ValidationTargets,
		GenerationsPerReload: c.GenerationsPerReload,
		SamplingStrategy:     c.SamplingStrategy,
		Generations:          c.Generations,
		PopulationSize:       c.PopulationSize,
		EliteCount:           c.EliteCount,
		MutationSigma:        c.MutationSigma,
		StepsPerEvaluation:   c.StepsPerEvaluation,
		Workers:              c.Workers,
		Seed:                 c.Seed,
	}
}
