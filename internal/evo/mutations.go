package evo

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"cupart/internal/policy"
)

var ErrNoMutationChoice = errors.New("no mutation choice available")

// PerturbRandomWeight mutates one random parameter (weight or bias) using a
// uniform delta in [-MaxDelta, MaxDelta].
type PerturbRandomWeight struct {
	Rand     *rand.Rand
	MaxDelta float64
}

func (o *PerturbRandomWeight) Name() string {
	return "perturb_random_weight"
}

func (o *PerturbRandomWeight) Apply(_ context.Context, p *policy.Linear) (*policy.Linear, error) {
	if p == nil || p.Params() == 0 {
		return nil, ErrNoMutationChoice
	}
	if o == nil || o.Rand == nil {
		return nil, errors.New("random source is required")
	}
	if o.MaxDelta <= 0 {
		return nil, errors.New("max delta must be > 0")
	}

	mutated := p.Clone()
	perturbParam(mutated, o.Rand.Intn(p.Params()), (o.Rand.Float64()*2-1)*o.MaxDelta)
	return mutated, nil
}

// PerturbWeightsProportional perturbs each parameter with probability
// 1/sqrt(params). At least one parameter is always perturbed.
type PerturbWeightsProportional struct {
	Rand     *rand.Rand
	MaxDelta float64
}

func (o *PerturbWeightsProportional) Name() string {
	return "perturb_weights_proportional"
}

func (o *PerturbWeightsProportional) Apply(_ context.Context, p *policy.Linear) (*policy.Linear, error) {
	if p == nil || p.Params() == 0 {
		return nil, ErrNoMutationChoice
	}
	if o == nil || o.Rand == nil {
		return nil, errors.New("random source is required")
	}
	if o.MaxDelta <= 0 {
		return nil, errors.New("max delta must be > 0")
	}

	mutated := p.Clone()
	prob := 1 / math.Sqrt(float64(p.Params()))
	changed := false
	for i := 0; i < p.Params(); i++ {
		if o.Rand.Float64() < prob {
			perturbParam(mutated, i, (o.Rand.Float64()*2-1)*o.MaxDelta)
			changed = true
		}
	}
	if !changed {
		perturbParam(mutated, o.Rand.Intn(p.Params()), (o.Rand.Float64()*2-1)*o.MaxDelta)
	}
	return mutated, nil
}

// perturbParam adds delta to parameter idx: weights row-major first, then
// biases.
func perturbParam(p *policy.Linear, idx int, delta float64) {
	weights := p.Actions() * p.Inputs()
	if idx < weights {
		a, i := idx/p.Inputs(), idx%p.Inputs()
		p.SetWeight(a, i, p.Weight(a, i)+delta)
		return
	}
	a := idx - weights
	p.SetBias(a, p.Bias(a)+delta)
}

// OperatorByName builds one of the perturbation operators.
func OperatorByName(name string, rng *rand.Rand, maxDelta float64) (Operator, error) {
	switch name {
	case "", "perturb_weights_proportional":
		return &PerturbWeightsProportional{Rand: rng, MaxDelta: maxDelta}, nil
	case "perturb_random_weight":
		return &PerturbRandomWeight{Rand: rng, MaxDelta: maxDelta}, nil
	default:
		return nil, errors.New("unsupported mutation operator: " + name)
	}
}
