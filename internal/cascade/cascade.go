// Package cascade combines binary split classifiers into a single six-way
// decision: an ordered linear cascade, a waterfall tree over class groups,
// and a parallel vote used to diagnose model overlap.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"cupart/internal/dataset"
	"cupart/internal/scape"
	"cupart/internal/split"
)

var ErrNoFallback = errors.New("no fallback class")

// Decider turns one sample into a split class. split.Unknown means the
// decider declined to choose. Deciders are not safe for concurrent use;
// Clone one per goroutine.
type Decider[S dataset.Sample] interface {
	Decide(ctx context.Context, sample S) (split.Split, error)
	Clone() Decider[S]
}

// Binding pairs a class with the binary model recognising it. Action 1 is
// a positive decision.
type Binding[S dataset.Sample] struct {
	Class split.Split
	Env   *scape.Environment[S]
	Model scape.Policy[S]
}

func (b Binding[S]) fires(ctx context.Context, sample S) (bool, error) {
	obs := sample
	if b.Env != nil {
		b.Env.SetObservation(sample)
		obs, _ = b.Env.Observation()
	}
	action, err := b.Model.Decide(ctx, obs)
	if err != nil {
		return false, fmt.Errorf("model %s: %w", b.Class, err)
	}
	return action == 1, nil
}

func (b Binding[S]) clone() Binding[S] {
	if b.Env != nil {
		b.Env = b.Env.Clone()
	}
	return b
}

// Linear consults its bindings in order; the first positive wins, otherwise
// Fallback is returned.
type Linear[S dataset.Sample] struct {
	Bindings []Binding[S]
	Fallback split.Split
}

func NewLinear[S dataset.Sample](bindings []Binding[S], fallback split.Split) (*Linear[S], error) {
	if len(bindings) == 0 {
		return nil, errors.New("cascade requires at least one binding")
	}
	seen := make(map[split.Split]bool, len(bindings))
	for i, b := range bindings {
		if !b.Class.Valid() {
			return nil, fmt.Errorf("binding %d: invalid class %d", i, b.Class)
		}
		if b.Model == nil {
			return nil, fmt.Errorf("binding %d (%s): model is required", i, b.Class)
		}
		if seen[b.Class] {
			return nil, fmt.Errorf("binding %d: duplicate class %s", i, b.Class)
		}
		seen[b.Class] = true
	}
	if fallback != split.Unknown && !fallback.Valid() {
		return nil, fmt.Errorf("invalid fallback class %d", fallback)
	}
	return &Linear[S]{Bindings: append([]Binding[S](nil), bindings...), Fallback: fallback}, nil
}

func (l *Linear[S]) Decide(ctx context.Context, sample S) (split.Split, error) {
	for _, b := range l.Bindings {
		if b.Env != nil {
			b.Env.SetObservation(sample)
		}
	}
	for _, b := range l.Bindings {
		ok, err := b.fires(ctx, sample)
		if err != nil {
			return split.Unknown, err
		}
		if ok {
			return b.Class, nil
		}
	}
	return l.Fallback, nil
}

func (l *Linear[S]) Clone() Decider[S] {
	bindings := make([]Binding[S], len(l.Bindings))
	for i, b := range l.Bindings {
		bindings[i] = b.clone()
	}
	return &Linear[S]{Bindings: bindings, Fallback: l.Fallback}
}

func (l *Linear[S]) Order() []split.Split {
	out := make([]split.Split, len(l.Bindings))
	for i, b := range l.Bindings {
		out[i] = b.Class
	}
	return out
}

// UncoveredFallback returns the only class absent from covered, the usual
// fallback of a five-model cascade.
func UncoveredFallback(covered []split.Split) (split.Split, error) {
	var missing []split.Split
	for _, s := range split.All() {
		found := false
		for _, c := range covered {
			if c == s {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, s)
		}
	}
	if len(missing) != 1 {
		return split.Unknown, fmt.Errorf("%w: %d classes uncovered", ErrNoFallback, len(missing))
	}
	return missing[0], nil
}

// ParseOrder parses a cascade order such as "TTV,NS,QT,BTH,BTV". Classes
// may not repeat.
func ParseOrder(order string) ([]split.Split, error) {
	classes, err := split.ParseList(order)
	if err != nil {
		return nil, err
	}
	seen := make(map[split.Split]bool, len(classes))
	for _, c := range classes {
		if seen[c] {
			return nil, fmt.Errorf("duplicate class %s in cascade order", c)
		}
		seen[c] = true
	}
	return classes, nil
}

// ParseFallback maps "none"/"unknown" to split.Unknown, "auto" to the class
// left uncovered by order, and anything else to a mnemonic.
func ParseFallback(name string, order []split.Split) (split.Split, error) {
	switch name {
	case "", "auto":
		return UncoveredFallback(order)
	case "none", "unknown":
		return split.Unknown, nil
	}
	s := split.Parse(name)
	if !s.Valid() {
		return split.Unknown, fmt.Errorf("unknown fallback class: %q", name)
	}
	return s, nil
}
