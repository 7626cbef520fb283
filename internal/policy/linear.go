// Package policy provides the baseline linear decision model and its DOT
// artifact format.
package policy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"cupart/internal/dataset"
	"cupart/internal/scape"
)

var ErrInputWidth = errors.New("observation width mismatch")

// Linear scores each action as w_a . x + b_a and picks the highest score;
// ties go to the lowest action id.
type Linear struct {
	weights *mat.Dense
	bias    *mat.VecDense
}

func NewLinear(actions, inputs int) (*Linear, error) {
	if actions < 2 {
		return nil, fmt.Errorf("linear policy requires at least 2 actions, got %d", actions)
	}
	if inputs < 1 {
		return nil, fmt.Errorf("linear policy requires at least 1 input, got %d", inputs)
	}
	return &Linear{
		weights: mat.NewDense(actions, inputs, nil),
		bias:    mat.NewVecDense(actions, nil),
	}, nil
}

// RandomLinear draws every parameter from N(0, scale^2).
func RandomLinear(rng *rand.Rand, actions, inputs int, scale float64) (*Linear, error) {
	p, err := NewLinear(actions, inputs)
	if err != nil {
		return nil, err
	}
	for a := 0; a < actions; a++ {
		for i := 0; i < inputs; i++ {
			p.weights.Set(a, i, rng.NormFloat64()*scale)
		}
		p.bias.SetVec(a, rng.NormFloat64()*scale)
	}
	return p, nil
}

func (p *Linear) Actions() int {
	r, _ := p.weights.Dims()
	return r
}

func (p *Linear) Inputs() int {
	_, c := p.weights.Dims()
	return c
}

func (p *Linear) Weight(action, input int) float64 { return p.weights.At(action, input) }

func (p *Linear) SetWeight(action, input int, v float64) { p.weights.Set(action, input, v) }

func (p *Linear) Bias(action int) float64 { return p.bias.AtVec(action) }

func (p *Linear) SetBias(action int, v float64) { p.bias.SetVec(action, v) }

// Params is the number of tunable parameters, weights then biases.
func (p *Linear) Params() int {
	return p.Actions() * (p.Inputs() + 1)
}

func (p *Linear) Scores(x []float64) ([]float64, error) {
	if len(x) != p.Inputs() {
		return nil, fmt.Errorf("%w: got %d want %d", ErrInputWidth, len(x), p.Inputs())
	}
	var out mat.VecDense
	out.MulVec(p.weights, mat.NewVecDense(len(x), x))
	out.AddVec(&out, p.bias)
	return out.RawVector().Data, nil
}

func (p *Linear) Act(x []float64) (int, error) {
	scores, err := p.Scores(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for a := 1; a < len(scores); a++ {
		if scores[a] > scores[best] {
			best = a
		}
	}
	return best, nil
}

func (p *Linear) Clone() *Linear {
	return &Linear{
		weights: mat.DenseCopyOf(p.weights),
		bias:    mat.VecDenseCopyOf(p.bias),
	}
}

// For adapts p to an environment sample type.
func For[S dataset.Sample](p *Linear) scape.Policy[S] {
	return scape.PolicyFunc[S](func(_ context.Context, obs S) (int, error) {
		return p.Act(dataset.Values(obs))
	})
}

// LoadPolicy reads a DOT artifact as a policy for S. It has the shape of a
// cascade model loader.
func LoadPolicy[S dataset.Sample](path string) (scape.Policy[S], error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	return For[S](p), nil
}
