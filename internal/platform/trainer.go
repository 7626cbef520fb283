// Package platform drives training: it reloads targets between
// generations, scores every candidate of the search engine in parallel,
// sweeps the generation champion over the validation pool and persists
// the outcome.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"cupart/internal/dataset"
	"cupart/internal/evo"
	"cupart/internal/logging"
	"cupart/internal/model"
	"cupart/internal/policy"
	"cupart/internal/scape"
	"cupart/internal/stats"
	"cupart/internal/storage"
	"cupart/internal/targets"
)

type TrainerConfig struct {
	RunID              string
	Representation     string
	Specialization     string
	Generations        int
	Workers            int
	StepsPerEvaluation int
	Seed               int64
	// Report paths; empty disables the report.
	ReadableReport string
	CompactReport  string
}

type TrainerOptions struct {
	Reporter *stats.Reporter
	Store    storage.Store
	Logger   *slog.Logger
}

type Result struct {
	RunID            string
	BestByGeneration []float64
	Validation       []model.ValidationRecord
	Best             evo.Scored
	BestGeneration   int
	BestDOT          []byte
	FinalScore       float64
}

// Trainer owns the target cache. Workers only see environment clones built
// on the cache's read-only view.
type Trainer[S dataset.Sample] struct {
	cfg      TrainerConfig
	cache    *targets.Cache[S]
	engine   evo.Engine
	labeler  scape.Labeler
	reporter *stats.Reporter
	store    storage.Store
	logger   *slog.Logger
}

func NewTrainer[S dataset.Sample](cache *targets.Cache[S], engine evo.Engine, labeler scape.Labeler, cfg TrainerConfig, opts TrainerOptions) (*Trainer[S], error) {
	if cache == nil {
		return nil, errors.New("target cache is required")
	}
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if labeler == nil {
		return nil, errors.New("labeler is required")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("invalid generations: %d", cfg.Generations)
	}
	if cfg.StepsPerEvaluation <= 0 {
		cfg.StepsPerEvaluation = cache.Config().TrainingTargets
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RunID == "" {
		cfg.RunID = fmt.Sprintf("train:%s:%d", cfg.Representation, cfg.Seed)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("platform")
	}
	return &Trainer[S]{
		cfg:      cfg,
		cache:    cache,
		engine:   engine,
		labeler:  labeler,
		reporter: opts.Reporter,
		store:    opts.Store,
		logger:   logger.With("run_id", cfg.RunID),
	}, nil
}

func (t *Trainer[S]) Run(ctx context.Context) (Result, error) {
	result := Result{RunID: t.cfg.RunID}
	template := scape.NewEnvironment[S](t.cache.View(), t.labeler)
	free := make(chan *scape.Environment[S], t.cfg.Workers)
	for i := 0; i < t.cfg.Workers; i++ {
		free <- template.Clone()
	}
	validator := template.Clone()
	haveBest := false

	for gen := 0; gen < t.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := t.cache.Reload(ctx, uint64(gen)); err != nil {
			if gen == 0 || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			t.logger.Warn("keeping previous training targets", "generation", gen, "error", err)
		}

		started := time.Now()
		scored, err := t.evaluate(ctx, free, gen)
		if err != nil {
			return result, err
		}
		champion := scored[0]
		for _, s := range scored[1:] {
			if s.Fitness > champion.Fitness {
				champion = s
			}
		}
		result.BestByGeneration = append(result.BestByGeneration, champion.Fitness)
		if !haveBest || champion.Fitness > result.Best.Fitness {
			result.Best = champion
			result.BestGeneration = gen
			haveBest = true
		}

		record, err := t.validate(ctx, validator, champion, gen)
		if err != nil {
			return result, err
		}
		result.Validation = append(result.Validation, record)
		result.FinalScore = record.Score
		if t.store != nil {
			if err := t.store.SaveValidationHistory(ctx, t.cfg.RunID, result.Validation); err != nil {
				return result, fmt.Errorf("save validation history: %w", err)
			}
		}
		t.logger.Info("generation complete",
			"generation", gen,
			"best_fitness", champion.Fitness,
			"validation_score", record.Score,
			"candidates", humanize.Comma(int64(len(scored))),
			"elapsed", time.Since(started).Round(time.Millisecond),
		)

		if err := t.engine.Advance(ctx, scored); err != nil {
			return result, fmt.Errorf("advance generation %d: %w", gen, err)
		}
	}

	if haveBest {
		dot, err := result.Best.Policy.Marshal(t.policyClass())
		if err != nil {
			return result, fmt.Errorf("marshal best policy: %w", err)
		}
		result.BestDOT = dot
	}
	if err := t.persist(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// evaluate scores the engine's population. Environment faults abort the
// run; any other per-candidate failure scores the candidate zero.
func (t *Trainer[S]) evaluate(ctx context.Context, free chan *scape.Environment[S], gen int) ([]evo.Scored, error) {
	population := t.engine.Population()
	if len(population) == 0 {
		return nil, fmt.Errorf("generation %d: empty population", gen)
	}
	scored := make([]evo.Scored, len(population))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)
	for i, candidate := range population {
		g.Go(func() error {
			env := <-free
			defer func() { free <- env }()

			seed := t.cfg.Seed + int64(gen)*int64(len(population)) + int64(i)
			fitness, trace, err := scape.Evaluate(gctx, env, policy.For[S](candidate.Policy), t.cfg.StepsPerEvaluation, seed)
			if err != nil {
				if fatal(err) {
					return fmt.Errorf("evaluate %s: %w", candidate.ID, err)
				}
				t.logger.Warn("candidate evaluation failed", "candidate", candidate.ID, "generation", gen, "error", err)
				scored[i] = evo.Scored{Candidate: candidate, Trace: scape.Trace{"error": err.Error()}}
				return nil
			}
			scored[i] = evo.Scored{Candidate: candidate, Fitness: float64(fitness), Trace: trace}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (t *Trainer[S]) validate(ctx context.Context, env *scape.Environment[S], champion evo.Scored, gen int) (model.ValidationRecord, error) {
	steps := t.cache.View().Validation().Len()
	confusion, err := scape.Sweep(ctx, env, policy.For[S](champion.Policy), steps)
	if err != nil {
		return model.ValidationRecord{}, fmt.Errorf("validate generation %d: %w", gen, err)
	}
	if t.reporter != nil {
		if t.cfg.ReadableReport != "" {
			t.reporter.Report(confusion, uint64(gen), t.cfg.ReadableReport, true)
		}
		if t.cfg.CompactReport != "" {
			t.reporter.Report(confusion, uint64(gen), t.cfg.CompactReport, false)
		}
	}
	record := stats.NewValidationRecord(gen, champion.Fitness, confusion)
	record.VersionedRecord = storage.Versioned()
	return record, nil
}

func (t *Trainer[S]) persist(ctx context.Context, result Result) error {
	if t.store == nil {
		return nil
	}
	run := model.Run{
		VersionedRecord: storage.Versioned(),
		ID:              t.cfg.RunID,
		Representation:  t.cfg.Representation,
		Specialization:  t.cfg.Specialization,
		Generations:     t.cfg.Generations,
		Seed:            t.cfg.Seed,
		CreatedAtUTC:    time.Now().UTC().Format(time.RFC3339),
		FinalScore:      result.FinalScore,
	}
	if err := t.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if result.BestDOT == nil {
		return nil
	}
	return t.store.SaveBestPolicy(ctx, model.PolicyRecord{
		VersionedRecord: storage.Versioned(),
		RunID:           t.cfg.RunID,
		Class:           t.policyClass(),
		Generation:      result.BestGeneration,
		Fitness:         result.Best.Fitness,
		DOT:             string(result.BestDOT),
	})
}

func (t *Trainer[S]) policyClass() string {
	if t.cfg.Specialization == "" {
		return "ALL"
	}
	return t.cfg.Specialization
}

func fatal(err error) bool {
	return errors.Is(err, scape.ErrInvalidAction) ||
		errors.Is(err, scape.ErrIllegalMode) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
