package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"cupart/internal/model"
)

const runIndexFile = "run_index.json"

type RunConfig struct {
	RunID                string  `json:"run_id"`
	Representation       string  `json:"representation"`
	Specialization       string  `json:"specialization,omitempty"`
	DatasetDir           string  `json:"dataset_dir"`
	DatabaseElements     uint64  `json:"database_elements"`
	TrainingTargets      int     `json:"training_targets"`
	ValidationTargets    int     `json:"validation_targets"`
	GenerationsPerReload uint64  `json:"generations_per_reload"`
	SamplingStrategy     string  `json:"sampling_strategy"`
	Generations          int     `json:"generations"`
	PopulationSize       int     `json:"population_size"`
	EliteCount           int     `json:"elite_count"`
	MutationSigma        float64 `json:"mutation_sigma"`
	StepsPerEvaluation   int     `json:"steps_per_evaluation"`
	Workers              int     `json:"workers"`
	Seed                 int64   `json:"seed"`
}

type RunArtifacts struct {
	Config            RunConfig                `json:"config"`
	ValidationHistory []model.ValidationRecord `json:"validation_history"`
	BestByGeneration  []float64                `json:"best_by_generation"`
	FinalScore        float64                  `json:"final_score"`
	BestPolicyDOT     string                   `json:"-"`
}

type RunIndexEntry struct {
	RunID          string  `json:"run_id"`
	Representation string  `json:"representation"`
	Specialization string  `json:"specialization,omitempty"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	FinalScore     float64 `json:"final_score"`
	CreatedAtUTC   string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes config.json, validation_history.json and, when
// present, out_best.dot under baseDir/<run id>.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "validation_history.json"), map[string]any{
		"best_by_generation": artifacts.BestByGeneration,
		"validation":         artifacts.ValidationHistory,
		"final_score":        artifacts.FinalScore,
	}); err != nil {
		return "", err
	}
	if artifacts.BestPolicyDOT != "" {
		if err := os.WriteFile(filepath.Join(runDir, "out_best.dot"), []byte(artifacts.BestPolicyDOT), 0o644); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{"config.json", "validation_history.json"} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	bestPath := filepath.Join(src, "out_best.dot")
	if _, err := os.Stat(bestPath); err == nil {
		if err := copyFile(bestPath, filepath.Join(dst, "out_best.dot")); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	path := filepath.Join(baseDir, runID, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadValidationHistory(baseDir, runID string) ([]model.ValidationRecord, bool, error) {
	path := filepath.Join(baseDir, runID, "validation_history.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var payload struct {
		Validation []model.ValidationRecord `json:"validation"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false, err
	}
	return payload.Validation, true, nil
}

// NewValidationRecord snapshots a validation confusion matrix.
func NewValidationRecord(generation int, bestFitness float64, c *Confusion) model.ValidationRecord {
	correct := make([]uint64, c.Classes())
	for i := range correct {
		correct[i] = c.At(i, i)
	}
	return model.ValidationRecord{
		Generation:  generation,
		BestFitness: bestFitness,
		Score:       c.MeanPercent(),
		Correct:     correct,
		Totals:      c.Totals(),
	}
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
