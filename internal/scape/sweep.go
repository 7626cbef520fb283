package scape

import (
	"context"
	"fmt"

	"cupart/internal/dataset"
	"cupart/internal/stats"
)

// Evaluate runs one job: Reset(seed, Training) followed by steps decisions,
// starting from a training sample chosen by seed.
func Evaluate[S dataset.Sample](ctx context.Context, env *Environment[S], policy Policy[S], steps int, seed int64) (Fitness, Trace, error) {
	if err := env.startJob(seed); err != nil {
		return 0, nil, err
	}
	if err := run(ctx, env, policy, steps); err != nil {
		return 0, nil, err
	}
	c := env.Confusion()
	return Fitness(env.Score()), Trace{
		"mode":      env.Mode().String(),
		"steps":     steps,
		"correct":   c.Trace(),
		"mean_pct":  c.MeanPercent(),
		"per_class": c.Totals(),
	}, nil
}

// Sweep scores policy over steps validation samples and parks the
// environment in Testing afterwards. Pass the validation pool size to
// cover it exactly once.
func Sweep[S dataset.Sample](ctx context.Context, env *Environment[S], policy Policy[S], steps int) (*stats.Confusion, error) {
	if err := env.Reset(0, Validation); err != nil {
		return nil, err
	}
	if err := run(ctx, env, policy, steps); err != nil {
		return nil, err
	}
	c := env.Confusion()
	if err := env.Reset(0, Testing); err != nil {
		return nil, err
	}
	return c, nil
}

func run[S dataset.Sample](ctx context.Context, env *Environment[S], policy Policy[S], steps int) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		obs, ok := env.Observation()
		if !ok {
			return fmt.Errorf("%w: step %d without observation", ErrEmptyPool, i)
		}
		action, err := policy.Decide(ctx, obs)
		if err != nil {
			return fmt.Errorf("decide step %d: %w", i, err)
		}
		if err := env.Step(action); err != nil {
			return err
		}
	}
	return nil
}
