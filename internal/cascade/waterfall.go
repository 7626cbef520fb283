package cascade

import (
	"context"
	"errors"
	"fmt"

	"cupart/internal/dataset"
	"cupart/internal/scape"
	"cupart/internal/split"
	"cupart/internal/targets"
)

// Node is either a leaf carrying Class, or a decision on Spec whose model
// routes positive samples to Positive and the rest to Negative.
type Node[S dataset.Sample] struct {
	Spec     split.Specialization
	Env      *scape.Environment[S]
	Model    scape.Policy[S]
	Positive *Node[S]
	Negative *Node[S]
	Class    split.Split
}

func Leaf[S dataset.Sample](class split.Split) *Node[S] {
	return &Node[S]{Class: class}
}

func (n *Node[S]) IsLeaf() bool {
	return n.Model == nil
}

type Waterfall[S dataset.Sample] struct {
	Root *Node[S]
}

func NewWaterfall[S dataset.Sample](root *Node[S]) (*Waterfall[S], error) {
	if root == nil {
		return nil, errors.New("waterfall requires a root node")
	}
	if err := validateNode(root, 0); err != nil {
		return nil, err
	}
	return &Waterfall[S]{Root: root}, nil
}

func validateNode[S dataset.Sample](n *Node[S], depth int) error {
	if n.IsLeaf() {
		if n.Class != split.Unknown && !n.Class.Valid() {
			return fmt.Errorf("leaf at depth %d: invalid class %d", depth, n.Class)
		}
		return nil
	}
	if err := n.Spec.Validate(); err != nil {
		return fmt.Errorf("node at depth %d: %w", depth, err)
	}
	if n.Positive == nil || n.Negative == nil {
		return fmt.Errorf("%w: node %s at depth %d lacks a branch", ErrNoFallback, n.Spec.Name(), depth)
	}
	if err := validateNode(n.Positive, depth+1); err != nil {
		return err
	}
	return validateNode(n.Negative, depth+1)
}

func (w *Waterfall[S]) Decide(ctx context.Context, sample S) (split.Split, error) {
	n := w.Root
	for !n.IsLeaf() {
		b := Binding[S]{Env: n.Env, Model: n.Model}
		ok, err := b.fires(ctx, sample)
		if err != nil {
			return split.Unknown, fmt.Errorf("node %s: %w", n.Spec.Name(), err)
		}
		if ok {
			n = n.Positive
		} else {
			n = n.Negative
		}
	}
	return n.Class, nil
}

func (w *Waterfall[S]) Clone() Decider[S] {
	return &Waterfall[S]{Root: cloneNode(w.Root)}
}

func cloneNode[S dataset.Sample](n *Node[S]) *Node[S] {
	if n == nil {
		return nil
	}
	c := *n
	if n.Env != nil {
		c.Env = n.Env.Clone()
	}
	c.Positive = cloneNode(n.Positive)
	c.Negative = cloneNode(n.Negative)
	return &c
}

// HorizontalGroup separates horizontal splits from vertical ones once NS
// and QT are ruled out.
var HorizontalGroup = split.Specialization{Positive: []split.Split{split.BinaryHorizontal, split.TernaryHorizontal}}

// DirectionTreeSpecs lists the models LoadDirectionTree reads.
func DirectionTreeSpecs() []split.Specialization {
	return []split.Specialization{
		split.Specialize(split.NoSplit),
		split.Specialize(split.QuadTree),
		HorizontalGroup,
		split.Specialize(split.TernaryHorizontal),
		split.Specialize(split.TernaryVertical),
	}
}

// LoadDirectionTree builds the default waterfall: NS, then QT, then the
// horizontal group against the vertical one, then ternary against binary
// inside the chosen direction. Models are read from SpecModelPath.
func LoadDirectionTree[S dataset.Sample](dir string, loader ModelLoader[S]) (*Waterfall[S], error) {
	if loader == nil {
		return nil, errors.New("model loader is required")
	}
	decision := func(spec split.Specialization, positive, negative *Node[S]) (*Node[S], error) {
		path := SpecModelPath(dir, spec)
		model, err := loader.LoadModel(path)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", path, err)
		}
		return &Node[S]{
			Spec:     spec,
			Env:      scape.NewEnvironment(targets.View[S]{}, scape.Binary{Spec: spec}),
			Model:    model,
			Positive: positive,
			Negative: negative,
		}, nil
	}

	horizontal, err := decision(split.Specialize(split.TernaryHorizontal), Leaf[S](split.TernaryHorizontal), Leaf[S](split.BinaryHorizontal))
	if err != nil {
		return nil, err
	}
	vertical, err := decision(split.Specialize(split.TernaryVertical), Leaf[S](split.TernaryVertical), Leaf[S](split.BinaryVertical))
	if err != nil {
		return nil, err
	}
	direction, err := decision(HorizontalGroup, horizontal, vertical)
	if err != nil {
		return nil, err
	}
	quad, err := decision(split.Specialize(split.QuadTree), Leaf[S](split.QuadTree), direction)
	if err != nil {
		return nil, err
	}
	top, err := decision(split.Specialize(split.NoSplit), Leaf[S](split.NoSplit), quad)
	if err != nil {
		return nil, err
	}
	return NewWaterfall(top)
}
