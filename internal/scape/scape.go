// Package scape hosts the classification environment that policies are
// scored against: samples from a target pool are presented one at a time,
// each decision is recorded in a confusion matrix, and the next sample is
// loaded.
package scape

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cupart/internal/dataset"
	"cupart/internal/targets"
)

type Fitness float64

type Trace map[string]any

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrIllegalMode   = errors.New("illegal mode for operation")
	ErrEmptyPool     = targets.ErrEmptyPool
)

type Mode uint8

const (
	Training Mode = iota
	Validation
	Testing
)

func (m Mode) String() string {
	switch m {
	case Training:
		return "gt"
	case Validation:
		return "validation"
	case Testing:
		return "test"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode accepts gt|training, validation, test|testing.
func ParseMode(name string) (Mode, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", "gt", "training":
		return Training, nil
	case "validation":
		return Validation, nil
	case "test", "testing":
		return Testing, nil
	default:
		return 0, fmt.Errorf("unsupported mode: %s", name)
	}
}

// Policy is the decision engine boundary: one observation in, one action id
// out.
type Policy[S dataset.Sample] interface {
	Decide(ctx context.Context, observation S) (int, error)
}

type PolicyFunc[S dataset.Sample] func(ctx context.Context, observation S) (int, error)

func (f PolicyFunc[S]) Decide(ctx context.Context, observation S) (int, error) {
	return f(ctx, observation)
}
