package cascade

import (
	"context"
	"errors"

	"cupart/internal/dataset"
	"cupart/internal/split"
)

// VoteResult lists every class whose model fired, in binding order.
type VoteResult struct {
	Fired        []split.Split
	Multiplicity int
}

// Vote runs every bound model on each sample. As a Decider it returns the
// fired class only when exactly one model fired.
type Vote[S dataset.Sample] struct {
	Bindings []Binding[S]
}

func NewVote[S dataset.Sample](bindings []Binding[S]) (*Vote[S], error) {
	if len(bindings) == 0 {
		return nil, errors.New("vote requires at least one binding")
	}
	if _, err := NewLinear(bindings, split.Unknown); err != nil {
		return nil, err
	}
	return &Vote[S]{Bindings: append([]Binding[S](nil), bindings...)}, nil
}

func (v *Vote[S]) Run(ctx context.Context, sample S) (VoteResult, error) {
	var r VoteResult
	for _, b := range v.Bindings {
		ok, err := b.fires(ctx, sample)
		if err != nil {
			return VoteResult{}, err
		}
		if ok {
			r.Fired = append(r.Fired, b.Class)
		}
	}
	r.Multiplicity = len(r.Fired)
	return r, nil
}

func (v *Vote[S]) Decide(ctx context.Context, sample S) (split.Split, error) {
	r, err := v.Run(ctx, sample)
	if err != nil {
		return split.Unknown, err
	}
	if r.Multiplicity != 1 {
		return split.Unknown, nil
	}
	return r.Fired[0], nil
}

func (v *Vote[S]) Clone() Decider[S] {
	bindings := make([]Binding[S], len(v.Bindings))
	for i, b := range v.Bindings {
		bindings[i] = b.clone()
	}
	return &Vote[S]{Bindings: bindings}
}

// VoteTally accumulates vote outcomes against ground truth.
type VoteTally struct {
	Samples uint64
	// Histogram[k] counts samples on which exactly k models fired.
	Histogram []uint64
	// Ambiguous counts, per true class, samples on which several models fired.
	Ambiguous [split.Count]uint64
	// Silent counts, per true class, samples on which no model fired.
	Silent [split.Count]uint64
	// Hit counts, per true class, samples on which the true class's model
	// fired.
	Hit [split.Count]uint64
}

func (t *VoteTally) Add(truth split.Split, r VoteResult) {
	t.Samples++
	for len(t.Histogram) <= r.Multiplicity {
		t.Histogram = append(t.Histogram, 0)
	}
	t.Histogram[r.Multiplicity]++
	if !truth.Valid() {
		return
	}
	switch {
	case r.Multiplicity == 0:
		t.Silent[truth]++
	case r.Multiplicity > 1:
		t.Ambiguous[truth]++
	}
	for _, f := range r.Fired {
		if f == truth {
			t.Hit[truth]++
			break
		}
	}
}
