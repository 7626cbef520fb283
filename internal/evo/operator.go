// Package evo is the policy search boundary used by the training driver
// together with a baseline elite hill climber over linear policies.
package evo

import (
	"context"

	"cupart/internal/policy"
	"cupart/internal/scape"
)

// Operator derives a mutated copy of a policy. It must not modify its input.
type Operator interface {
	Name() string
	Apply(ctx context.Context, p *policy.Linear) (*policy.Linear, error)
}

// Candidate is one policy of a generation.
type Candidate struct {
	ID        string
	ParentID  string
	Operation string
	Policy    *policy.Linear
}

type Scored struct {
	Candidate
	Fitness float64
	Trace   scape.Trace
}

// Engine proposes candidates and learns from their fitness. The driver
// calls Population, scores every candidate, then calls Advance with the
// scores in the same order.
type Engine interface {
	Population() []Candidate
	Advance(ctx context.Context, scored []Scored) error
}
