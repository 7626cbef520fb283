package platform

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"cupart/internal/dataset"
	"cupart/internal/evo"
	"cupart/internal/policy"
	"cupart/internal/scape"
	"cupart/internal/split"
	"cupart/internal/stats"
	"cupart/internal/storage"
	"cupart/internal/targets"
)

// indexLoader labels record i with split i mod 6.
type indexLoader struct{}

func (indexLoader) Load(index uint64) (dataset.Features, split.Split, error) {
	return dataset.Features{float64(index)}, split.Split(index % uint64(split.Count)), nil
}

// fixedEngine replays the same population every generation.
type fixedEngine struct {
	population []evo.Candidate
	advanced   [][]evo.Scored
}

func (e *fixedEngine) Population() []evo.Candidate {
	return append([]evo.Candidate(nil), e.population...)
}

func (e *fixedEngine) Advance(_ context.Context, scored []evo.Scored) error {
	e.advanced = append(e.advanced, scored)
	return nil
}

// constant returns a one-input policy that always picks action.
func constant(t *testing.T, actions, inputs, action int) *policy.Linear {
	t.Helper()
	p, err := policy.NewLinear(actions, inputs)
	if err != nil {
		t.Fatalf("new linear: %v", err)
	}
	p.SetBias(action, 1)
	return p
}

func newCache(t *testing.T) *targets.Cache[dataset.Features] {
	t.Helper()
	cache, err := targets.NewCache[dataset.Features](indexLoader{}, targets.Config{
		DatabaseElements:     12,
		TrainingTargets:      12,
		ValidationTargets:    6,
		GenerationsPerReload: 2,
		Strategy:             targets.WithoutReplacement,
		Seed:                 3,
	}, targets.CacheOptions{})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return cache
}

func qtLabeler(t *testing.T) scape.Labeler {
	t.Helper()
	labeler, err := scape.NewBinary(split.Specialization{Positive: []split.Split{split.QuadTree}})
	if err != nil {
		t.Fatalf("new binary labeler: %v", err)
	}
	return labeler
}

func TestTrainerRunsGenerationsAndPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	engine := &fixedEngine{population: []evo.Candidate{
		{ID: "yes", Policy: constant(t, 2, 1, 1)},
		{ID: "no", Policy: constant(t, 2, 1, 0)},
	}}
	labeler := qtLabeler(t)
	trainer, err := NewTrainer(newCache(t), engine, labeler, TrainerConfig{
		RunID:              "run-1",
		Representation:     "features",
		Specialization:     "QT",
		Generations:        3,
		Workers:            2,
		StepsPerEvaluation: 12,
		Seed:               1,
		ReadableReport:     filepath.Join(dir, "readable.txt"),
		CompactReport:      filepath.Join(dir, "compact.txt"),
	}, TrainerOptions{
		Reporter: stats.NewReporter("QT", labeler.Names()),
		Store:    store,
	})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	result, err := trainer.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// The whole 12-record database is the training pool: indices 1 and 7 are
	// QT, so answering "negative" is right 10 times out of 12.
	if len(engine.advanced) != 3 {
		t.Fatalf("expected 3 advances, got %d", len(engine.advanced))
	}
	for gen, scored := range engine.advanced {
		if scored[0].Fitness != 2 || scored[1].Fitness != 10 {
			t.Fatalf("generation %d: unexpected fitness %v / %v", gen, scored[0].Fitness, scored[1].Fitness)
		}
	}
	if result.Best.ID != "no" || result.Best.Fitness != 10 || result.BestGeneration != 0 {
		t.Fatalf("unexpected best: %+v at %d", result.Best.Candidate, result.BestGeneration)
	}
	if len(result.BestByGeneration) != 3 || len(result.Validation) != 3 {
		t.Fatalf("unexpected history lengths: %d / %d", len(result.BestByGeneration), len(result.Validation))
	}
	for _, record := range result.Validation {
		var total uint64
		for _, n := range record.Totals {
			total += n
		}
		if total != 6 {
			t.Fatalf("validation sweep must cover the pool once, got %d samples", total)
		}
		if record.SchemaVersion != storage.CurrentSchemaVersion {
			t.Fatalf("record not version stamped: %+v", record)
		}
	}
	if !strings.Contains(string(result.BestDOT), "digraph QT") {
		t.Fatalf("unexpected best policy artifact:\n%s", result.BestDOT)
	}

	history, ok, err := store.GetValidationHistory(ctx, "run-1")
	if err != nil || !ok || len(history) != 3 {
		t.Fatalf("stored history: ok=%t len=%d err=%v", ok, len(history), err)
	}
	run, ok, err := store.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("stored run: ok=%t err=%v", ok, err)
	}
	if run.FinalScore != result.FinalScore || run.Specialization != "QT" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if _, ok, _ := store.GetBestPolicy(ctx, "run-1", "QT"); !ok {
		t.Fatal("expected best policy in store")
	}

	compact, err := os.ReadFile(filepath.Join(dir, "compact.txt"))
	if err != nil {
		t.Fatalf("read compact report: %v", err)
	}
	reports, err := stats.ParseCompact(strings.NewReader(string(compact)))
	if err != nil {
		t.Fatalf("parse compact report: %v", err)
	}
	if len(reports) != 1 || len(reports[0].Rows) != 3 {
		t.Fatalf("unexpected compact reports: %+v", reports)
	}
	if _, err := os.Stat(filepath.Join(dir, "readable.txt")); err != nil {
		t.Fatalf("readable report: %v", err)
	}
}

func TestTrainerAbortsOnInvalidAction(t *testing.T) {
	engine := &fixedEngine{population: []evo.Candidate{
		{ID: "bad", Policy: constant(t, 3, 1, 2)},
	}}
	trainer, err := NewTrainer(newCache(t), engine, qtLabeler(t), TrainerConfig{Generations: 2}, TrainerOptions{})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	_, err = trainer.Run(context.Background())
	if !errors.Is(err, scape.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if len(engine.advanced) != 0 {
		t.Fatal("engine must not advance after an environment fault")
	}
}

func TestTrainerScoresFailedCandidateZero(t *testing.T) {
	engine := &fixedEngine{population: []evo.Candidate{
		{ID: "wide", Policy: constant(t, 2, 3, 0)},
		{ID: "ok", Policy: constant(t, 2, 1, 0)},
	}}
	trainer, err := NewTrainer(newCache(t), engine, qtLabeler(t), TrainerConfig{Generations: 1}, TrainerOptions{})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	result, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	scored := engine.advanced[0]
	if scored[0].Fitness != 0 || scored[0].Trace["error"] == nil {
		t.Fatalf("expected zero fitness with error trace, got %+v", scored[0])
	}
	if result.Best.ID != "ok" {
		t.Fatalf("unexpected best: %s", result.Best.ID)
	}
}

func TestTrainerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := &fixedEngine{population: []evo.Candidate{{ID: "a", Policy: constant(t, 2, 1, 0)}}}
	trainer, err := NewTrainer(newCache(t), engine, qtLabeler(t), TrainerConfig{Generations: 1}, TrainerOptions{})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	if _, err := trainer.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTrainerWithHillClimber(t *testing.T) {
	mutation, err := evo.OperatorByName("perturb_random_weight", rand.New(rand.NewSource(9)), 0.5)
	if err != nil {
		t.Fatalf("operator: %v", err)
	}
	engine, err := evo.NewHillClimber(evo.HillClimberConfig{
		PopulationSize: 6,
		EliteCount:     2,
		Actions:        2,
		Inputs:         1,
		Mutation:       mutation,
		Seed:           5,
	})
	if err != nil {
		t.Fatalf("hill climber: %v", err)
	}
	trainer, err := NewTrainer(newCache(t), engine, qtLabeler(t), TrainerConfig{Generations: 4, Workers: 3}, TrainerOptions{})
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}
	result, err := trainer.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i := 1; i < len(result.BestByGeneration); i++ {
		if result.BestByGeneration[i] < result.BestByGeneration[i-1] {
			t.Fatalf("elitism must keep the best fitness monotone: %v", result.BestByGeneration)
		}
	}
}

func TestTrainerReproducibleAcrossWorkerCounts(t *testing.T) {
	run := func(workers int) Result {
		t.Helper()
		mutation, err := evo.OperatorByName("perturb_random_weight", rand.New(rand.NewSource(9)), 0.5)
		if err != nil {
			t.Fatalf("operator: %v", err)
		}
		engine, err := evo.NewHillClimber(evo.HillClimberConfig{
			PopulationSize: 6,
			EliteCount:     2,
			Actions:        2,
			Inputs:         1,
			Mutation:       mutation,
			Seed:           5,
		})
		if err != nil {
			t.Fatalf("hill climber: %v", err)
		}
		trainer, err := NewTrainer(newCache(t), engine, qtLabeler(t), TrainerConfig{
			Generations:        4,
			Workers:            workers,
			StepsPerEvaluation: 5,
			Seed:               21,
		}, TrainerOptions{})
		if err != nil {
			t.Fatalf("new trainer: %v", err)
		}
		result, err := trainer.Run(context.Background())
		if err != nil {
			t.Fatalf("run with %d workers: %v", workers, err)
		}
		return result
	}

	serial, parallel := run(1), run(4)
	if !slices.Equal(serial.BestByGeneration, parallel.BestByGeneration) {
		t.Fatalf("best by generation differs: 1 worker %v, 4 workers %v", serial.BestByGeneration, parallel.BestByGeneration)
	}
}
