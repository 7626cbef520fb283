// Package cupart is the programmatic entry point for inspecting recorded
// training runs: the run index, validation histories, exported artifacts
// and best policies.
package cupart

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"cupart/internal/model"
	"cupart/internal/stats"
	"cupart/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "cupart.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
}

type Client struct {
	store storage.Store

	initOnce sync.Once
	initErr  error

	artifactsDir string
	exportsDir   string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	Representation string
	Specialization string
	Generations    int
	Seed           int64
	FinalScore     float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type HistorySummary struct {
	RunID string
	// Config is nil when the run directory has no config.json.
	Config  *stats.RunConfig
	Records []model.ValidationRecord
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Store exposes the initialized backing store, for callers that record
// new runs.
func (c *Client) Store(ctx context.Context) (storage.Store, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store, nil
}

func (c *Client) ArtifactsDir() string {
	return c.artifactsDir
}

// Runs lists the run index newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			CreatedAtUTC:   e.CreatedAtUTC,
			Representation: e.Representation,
			Specialization: e.Specialization,
			Generations:    e.Generations,
			Seed:           e.Seed,
			FinalScore:     e.FinalScore,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// History returns a run's validation records. The store is consulted
// first; the run's artifact directory is the fallback, so histories
// written by memory-store processes stay readable.
func (c *Client) History(ctx context.Context, req HistoryRequest) (HistorySummary, error) {
	if req.Limit < 0 {
		return HistorySummary{}, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return HistorySummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return HistorySummary{}, err
	}

	records, ok, err := c.store.GetValidationHistory(ctx, runID)
	if err != nil {
		return HistorySummary{}, err
	}
	if !ok {
		records, ok, err = stats.ReadValidationHistory(c.artifactsDir, runID)
		if err != nil {
			return HistorySummary{}, err
		}
	}
	if !ok {
		return HistorySummary{}, fmt.Errorf("validation history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}

	summary := HistorySummary{RunID: runID, Records: records}
	cfg, ok, err := stats.ReadRunConfig(c.artifactsDir, runID)
	if err != nil {
		return HistorySummary{}, err
	}
	if ok {
		summary.Config = &cfg
	}
	return summary, nil
}

// BestPolicy returns the DOT artifact of a run's best policy for class
// ("ALL" for six-way runs).
func (c *Client) BestPolicy(ctx context.Context, runID, class string) (model.PolicyRecord, error) {
	if err := c.Init(ctx); err != nil {
		return model.PolicyRecord{}, err
	}
	record, ok, err := c.store.GetBestPolicy(ctx, runID, class)
	if err != nil {
		return model.PolicyRecord{}, err
	}
	if !ok {
		return model.PolicyRecord{}, fmt.Errorf("best policy not found for run id %s class %s", runID, class)
	}
	return record, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}
