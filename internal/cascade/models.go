package cascade

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"cupart/internal/dataset"
	"cupart/internal/scape"
	"cupart/internal/split"
	"cupart/internal/stats"
	"cupart/internal/targets"
)

// ModelPath is the artifact location of the binary model for class:
// <root>/<MNEMONIC>.dot.
func ModelPath(root string, class split.Split) string {
	return SpecModelPath(root, split.Specialize(class))
}

// SpecModelPath is the artifact location of a model deciding spec, named
// after it: <root>/BTH+TTH.dot for a group.
func SpecModelPath(root string, spec split.Specialization) string {
	return filepath.Join(root, spec.Name()+".dot")
}

type ModelLoader[S dataset.Sample] interface {
	LoadModel(path string) (scape.Policy[S], error)
}

type ModelLoaderFunc[S dataset.Sample] func(path string) (scape.Policy[S], error)

func (f ModelLoaderFunc[S]) LoadModel(path string) (scape.Policy[S], error) {
	return f(path)
}

// LoadBindings loads one binary model per class in order, each bound to
// its own environment specialized on that class.
func LoadBindings[S dataset.Sample](root string, order []split.Split, loader ModelLoader[S]) ([]Binding[S], error) {
	if loader == nil {
		return nil, errors.New("model loader is required")
	}
	bindings := make([]Binding[S], 0, len(order))
	for _, class := range order {
		path := ModelPath(root, class)
		model, err := loader.LoadModel(path)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", path, err)
		}
		bindings = append(bindings, Binding[S]{
			Class: class,
			Env:   scape.NewEnvironment(targets.View[S]{}, scape.Binary{Spec: split.Specialize(class)}),
			Model: model,
		})
	}
	return bindings, nil
}

// Evaluate decides every sample of pool and returns the six-way confusion
// of truth against decision. Samples the decider declines are counted in
// declined and left out of the matrix. Work is split across up to workers
// clones of decider, all taken before any of them runs; decider itself is
// never driven.
func Evaluate[S dataset.Sample](ctx context.Context, decider Decider[S], pool *targets.Pool[S], workers int) (c *stats.Confusion, declined uint64, err error) {
	if pool.Len() == 0 {
		return nil, 0, targets.ErrEmptyPool
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > pool.Len() {
		workers = pool.Len()
	}

	deciders := make([]Decider[S], workers)
	partials := make([]*stats.Confusion, workers)
	for w := range deciders {
		deciders[w] = decider.Clone()
		partials[w] = stats.NewConfusion(split.Count)
	}
	skipped := make([]uint64, workers)
	g, gctx := errgroup.WithContext(ctx)
	chunk := (pool.Len() + workers - 1) / workers
	for w, d := range deciders {
		lo, hi := w*chunk, min((w+1)*chunk, pool.Len())
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				sample, truth := pool.At(i)
				got, err := d.Decide(gctx, sample)
				if err != nil {
					return fmt.Errorf("sample %d: %w", i, err)
				}
				if !got.Valid() {
					skipped[w]++
					continue
				}
				if err := partials[w].Observe(int(truth), int(got)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	c = stats.NewConfusion(split.Count)
	for w, p := range partials {
		if err := c.Merge(p); err != nil {
			return nil, 0, err
		}
		declined += skipped[w]
	}
	return c, declined, nil
}

type ScoreConfig struct {
	// Targets is the number of samples drawn per evaluation.
	Targets          int
	Evaluations      int
	DatabaseElements uint64
	Strategy         targets.Strategy
	Workers          int
}

type ScoreResult struct {
	Confusion *stats.Confusion
	Declined  uint64
	// Scores holds the mean per-class recall of each evaluation.
	Scores []float64
}

// Score repeatedly draws a fresh pool from loader and evaluates decider on
// it, accumulating one confusion over all evaluations.
func Score[S dataset.Sample](ctx context.Context, decider Decider[S], loader dataset.Loader[S], rng *rand.Rand, cfg ScoreConfig) (ScoreResult, error) {
	if cfg.Evaluations <= 0 {
		cfg.Evaluations = 1
	}
	result := ScoreResult{Confusion: stats.NewConfusion(split.Count)}
	for e := 0; e < cfg.Evaluations; e++ {
		pool, err := targets.Draw(ctx, loader, rng, targets.DrawRequest{
			Bucket:           targets.BucketValidation,
			Count:            cfg.Targets,
			DatabaseElements: cfg.DatabaseElements,
			Strategy:         cfg.Strategy,
		})
		if err != nil {
			return ScoreResult{}, fmt.Errorf("evaluation %d: %w", e, err)
		}
		c, declined, err := Evaluate(ctx, decider, pool, cfg.Workers)
		if err != nil {
			return ScoreResult{}, fmt.Errorf("evaluation %d: %w", e, err)
		}
		if err := result.Confusion.Merge(c); err != nil {
			return ScoreResult{}, err
		}
		result.Declined += declined
		result.Scores = append(result.Scores, c.MeanPercent())
	}
	return result, nil
}
