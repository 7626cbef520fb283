package main

import (
	"github.com/spf13/cobra"

	"cupart/internal/logging"
	"cupart/internal/storage"
	"cupart/pkg/cupart"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	defaultArtifactsDir = "runs"
	defaultDBPath       = "cupart.db"
)

type globalOptions struct {
	logLevel     string
	logFormat    string
	storeKind    string
	dbPath       string
	artifactsDir string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "cupartctl",
		Short:         "Train and evaluate CU partition classifiers",
		Long:          "cupartctl trains classifiers predicting how a video encoder splits a coding unit,\nand scores cascades of trained binary classifiers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.Setup(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format: text|json")
	f.StringVar(&opts.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	f.StringVar(&opts.dbPath, "db-path", defaultDBPath, "sqlite database path")
	f.StringVar(&opts.artifactsDir, "artifacts-dir", defaultArtifactsDir, "directory holding per-run artifacts and the run index")

	root.AddCommand(newTrainCmd(opts))
	root.AddCommand(newInferCmd(opts))
	root.AddCommand(newReportCmd())
	root.AddCommand(newRunsCmd(opts))
	root.AddCommand(newHistoryCmd(opts))
	return root
}

func (o *globalOptions) newClient() (*cupart.Client, error) {
	return cupart.New(cupart.Options{
		StoreKind:    o.storeKind,
		DBPath:       o.dbPath,
		ArtifactsDir: o.artifactsDir,
	})
}
