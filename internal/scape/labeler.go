package scape

import (
	"cupart/internal/split"
	"cupart/internal/stats"
)

// Labeler maps a split class to the label an environment scores against.
type Labeler interface {
	NumActions() int
	Label(s split.Split) int
	Names() []string
}

// SixWay scores against the split class itself.
type SixWay struct{}

func (SixWay) NumActions() int { return split.Count }

func (SixWay) Label(s split.Split) int { return int(s) }

func (SixWay) Names() []string { return stats.ClassNames(split.Count, nil) }

// Binary scores membership of the specialization's positive set: label 1
// for a positive class, 0 otherwise.
type Binary struct {
	Spec split.Specialization
}

func NewBinary(spec split.Specialization) (Binary, error) {
	if err := spec.Validate(); err != nil {
		return Binary{}, err
	}
	return Binary{Spec: spec}, nil
}

func (Binary) NumActions() int { return 2 }

func (b Binary) Label(s split.Split) int { return b.Spec.Label(s) }

func (b Binary) Names() []string { return stats.ClassNames(2, &b.Spec) }
