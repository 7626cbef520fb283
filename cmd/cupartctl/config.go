package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"cupart/internal/split"
	"cupart/internal/targets"
)

const (
	representationPixels   = "pixels"
	representationFeatures = "features"
)

// trainConfig is the run configuration of "cupartctl train". It is read
// from a YAML or JSON file and then overridden by explicitly set flags.
type trainConfig struct {
	RunID          string `yaml:"run_id"`
	Representation string `yaml:"representation"`
	// Specialization is empty for a six-way classifier, otherwise a
	// comma-separated positive set such as "QT" or "BTH,TTH".
	Specialization string `yaml:"specialization"`

	DatasetDir        string `yaml:"dataset_dir"`
	CUWidth           int    `yaml:"cu_width"`
	CUHeight          int    `yaml:"cu_height"`
	Features          int    `yaml:"features"`
	CSVHeader         bool   `yaml:"csv_header"`
	CSVLeadingColumns int    `yaml:"csv_leading_columns"`

	DatabaseElements     uint64 `yaml:"database_elements"`
	TrainingTargets      int    `yaml:"training_targets"`
	ValidationTargets    int    `yaml:"validation_targets"`
	GenerationsPerReload uint64 `yaml:"generations_per_reload"`
	SamplingStrategy     string `yaml:"sampling_strategy"`
	MaxLoadFailures      int    `yaml:"max_load_failures"`

	Generations        int     `yaml:"generations"`
	PopulationSize     int     `yaml:"population_size"`
	EliteCount         int     `yaml:"elite_count"`
	Selection          string  `yaml:"selection"`
	Mutation           string  `yaml:"mutation"`
	MutationSigma      float64 `yaml:"mutation_sigma"`
	StepsPerEvaluation int     `yaml:"steps_per_evaluation"`
	Workers            int     `yaml:"workers"`
	Seed               int64   `yaml:"seed"`

	ReportDir string `yaml:"report_dir"`
	ModelDir  string `yaml:"model_dir"`
}

func defaultTrainConfig() trainConfig {
	return trainConfig{
		Representation:       representationFeatures,
		TrainingTargets:      1000,
		ValidationTargets:    1000,
		GenerationsPerReload: 1,
		SamplingStrategy:     string(targets.WithReplacement),
		Generations:          100,
		PopulationSize:       50,
		EliteCount:           5,
		Selection:            "elite",
		Mutation:             "perturb_weights_proportional",
		MutationSigma:        0.5,
		Workers:              runtime.NumCPU(),
		Seed:                 1,
		ReportDir:            ".",
		ModelDir:             "models",
	}
}

// bindTrainFlags registers one flag per config field, using the current
// values of cfg as defaults.
func bindTrainFlags(fs *pflag.FlagSet, cfg *trainConfig) {
	fs.StringVar(&cfg.RunID, "run-id", cfg.RunID, "run id (default: random uuid)")
	fs.StringVar(&cfg.Representation, "representation", cfg.Representation, "sample representation: pixels|features")
	fs.StringVar(&cfg.Specialization, "specialization", cfg.Specialization, "positive classes of a binary classifier, e.g. QT or BTH,TTH (empty: six-way)")
	fs.StringVar(&cfg.DatasetDir, "dataset-dir", cfg.DatasetDir, "directory holding <index>.bin or <index>.csv records")
	fs.IntVar(&cfg.CUWidth, "cu-width", cfg.CUWidth, "CU width in pixels (pixels representation)")
	fs.IntVar(&cfg.CUHeight, "cu-height", cfg.CUHeight, "CU height in pixels (pixels representation)")
	fs.IntVar(&cfg.Features, "features", cfg.Features, "features per record, QP excluded (features representation)")
	fs.BoolVar(&cfg.CSVHeader, "csv-header", cfg.CSVHeader, "feature files start with a header line")
	fs.IntVar(&cfg.CSVLeadingColumns, "csv-leading-columns", cfg.CSVLeadingColumns, "columns skipped before the QP column")
	fs.Uint64Var(&cfg.DatabaseElements, "database-elements", cfg.DatabaseElements, "number of records in the dataset")
	fs.IntVar(&cfg.TrainingTargets, "training-targets", cfg.TrainingTargets, "training pool size")
	fs.IntVar(&cfg.ValidationTargets, "validation-targets", cfg.ValidationTargets, "validation pool size")
	fs.Uint64Var(&cfg.GenerationsPerReload, "generations-per-reload", cfg.GenerationsPerReload, "training pool reload cadence")
	fs.StringVar(&cfg.SamplingStrategy, "sampling-strategy", cfg.SamplingStrategy, "with_replacement|without_replacement")
	fs.IntVar(&cfg.MaxLoadFailures, "max-load-failures", cfg.MaxLoadFailures, "skipped records tolerated per pool fill (0: pool size)")
	fs.IntVar(&cfg.Generations, "generations", cfg.Generations, "generations to run")
	fs.IntVar(&cfg.PopulationSize, "population", cfg.PopulationSize, "candidates per generation")
	fs.IntVar(&cfg.EliteCount, "elite-count", cfg.EliteCount, "candidates kept unchanged each generation")
	fs.StringVar(&cfg.Selection, "selection", cfg.Selection, "parent selection: elite|tournament")
	fs.StringVar(&cfg.Mutation, "mutation", cfg.Mutation, "mutation operator: perturb_weights_proportional|perturb_random_weight")
	fs.Float64Var(&cfg.MutationSigma, "mutation-sigma", cfg.MutationSigma, "maximum parameter perturbation")
	fs.IntVar(&cfg.StepsPerEvaluation, "steps", cfg.StepsPerEvaluation, "decisions per candidate evaluation (0: training pool size)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel evaluation workers")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	fs.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "directory for classification reports")
	fs.StringVar(&cfg.ModelDir, "model-dir", cfg.ModelDir, "directory receiving <CLASS>.dot model artifacts")
}

// loadTrainConfig reads path over the defaults. YAML is a superset of JSON,
// so both formats go through the YAML decoder; unknown keys are rejected.
func loadTrainConfig(path string) (trainConfig, error) {
	cfg := defaultTrainConfig()
	f, err := os.Open(path)
	if err != nil {
		return trainConfig{}, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return trainConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveTrainConfig layers defaults, the optional config file, and the
// flags the user set explicitly on cmd.
func resolveTrainConfig(cmd *cobra.Command, path string) (trainConfig, error) {
	cfg := defaultTrainConfig()
	if path != "" {
		loaded, err := loadTrainConfig(path)
		if err != nil {
			return trainConfig{}, err
		}
		cfg = loaded
	}

	overlay := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
	bindTrainFlags(overlay, &cfg)
	var setErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if setErr != nil || overlay.Lookup(f.Name) == nil {
			return
		}
		if err := overlay.Set(f.Name, f.Value.String()); err != nil {
			setErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return trainConfig{}, setErr
	}
	return cfg, cfg.validate()
}

func (c trainConfig) validate() error {
	switch c.Representation {
	case representationPixels, representationFeatures:
	default:
		return fmt.Errorf("unsupported representation: %q", c.Representation)
	}
	if c.DatasetDir == "" {
		return errors.New("dataset dir is required")
	}
	if _, err := c.specialization(); err != nil {
		return err
	}
	if c.Generations <= 0 {
		return errors.New("generations must be > 0")
	}
	if c.PopulationSize <= 0 {
		return errors.New("population size must be > 0")
	}
	if c.EliteCount <= 0 || c.EliteCount > c.PopulationSize {
		return fmt.Errorf("elite count must be in [1, %d]", c.PopulationSize)
	}
	if c.MutationSigma <= 0 {
		return errors.New("mutation sigma must be > 0")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	return c.targetsConfig().Validate()
}

// specialization returns nil for a six-way classifier.
func (c trainConfig) specialization() (*split.Specialization, error) {
	if c.Specialization == "" {
		return nil, nil
	}
	positive, err := split.ParseList(c.Specialization)
	if err != nil {
		return nil, fmt.Errorf("specialization: %w", err)
	}
	spec := split.Specialization{Positive: positive}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (c trainConfig) targetsConfig() targets.Config {
	return targets.Config{
		DatabaseElements:     c.DatabaseElements,
		TrainingTargets:      c.TrainingTargets,
		ValidationTargets:    c.ValidationTargets,
		GenerationsPerReload: c.GenerationsPerReload,
		Strategy:             targets.Strategy(c.SamplingStrategy),
		MaxLoadFailures:      c.MaxLoadFailures,
		Seed:                 c.Seed,
	}
}
