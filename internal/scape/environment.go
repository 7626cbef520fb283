package scape

import (
	"fmt"
	"math/rand"

	"cupart/internal/dataset"
	"cupart/internal/split"
	"cupart/internal/stats"
	"cupart/internal/targets"
)

// Environment is a single-owner state machine over the pools of a target
// view. Workers each own a Clone; the view is shared read-only.
type Environment[S dataset.Sample] struct {
	view    targets.View[S]
	labeler Labeler

	mode      Mode
	rng       *rand.Rand
	cursors   [2]targets.Cursor
	current   S
	split     split.Split
	label     int
	observed  bool
	confusion *stats.Confusion
}

func NewEnvironment[S dataset.Sample](view targets.View[S], labeler Labeler) *Environment[S] {
	if labeler == nil {
		labeler = SixWay{}
	}
	return &Environment[S]{
		view:      view,
		labeler:   labeler,
		mode:      Testing,
		rng:       rand.New(rand.NewSource(0)),
		split:     split.Unknown,
		confusion: stats.NewConfusion(labeler.NumActions()),
	}
}

func (e *Environment[S]) NumActions() int { return e.labeler.NumActions() }

func (e *Environment[S]) Labeler() Labeler { return e.labeler }

func (e *Environment[S]) Mode() Mode { return e.mode }

// Reset reseeds the generator, switches mode, clears the confusion matrix
// and, outside Testing, loads the first sample.
func (e *Environment[S]) Reset(seed int64, mode Mode) error {
	if mode > Testing {
		return fmt.Errorf("%w: %s", ErrIllegalMode, mode)
	}
	e.rng.Seed(seed)
	e.mode = mode
	e.confusion.Reset()
	e.observed = false
	if mode == Testing {
		return nil
	}
	return e.loadNext()
}

// startJob is Reset(seed, Training) with the training cursor first moved to
// an offset drawn from the reseeded generator. The samples a job sees then
// depend on seed alone, not on which clone ran it before.
func (e *Environment[S]) startJob(seed int64) error {
	e.rng.Seed(seed)
	if pool := e.view.Training(); pool.Len() > 0 {
		e.cursors[0] = pool.CursorAt(e.rng.Intn(pool.Len()))
	}
	return e.Reset(seed, Training)
}

// Step records action against the current label and advances to the next
// sample.
func (e *Environment[S]) Step(action int) error {
	if action < 0 || action >= e.labeler.NumActions() {
		return fmt.Errorf("%w: %d outside [0,%d)", ErrInvalidAction, action, e.labeler.NumActions())
	}
	if e.mode == Testing {
		return fmt.Errorf("%w: step in %s", ErrIllegalMode, e.mode)
	}
	if !e.observed {
		return fmt.Errorf("%w: no sample loaded", ErrEmptyPool)
	}
	if err := e.confusion.Observe(e.label, action); err != nil {
		return err
	}
	return e.loadNext()
}

func (e *Environment[S]) loadNext() error {
	var (
		pool   *targets.Pool[S]
		cursor *targets.Cursor
	)
	switch e.mode {
	case Training:
		pool, cursor = e.view.Training(), &e.cursors[0]
	case Validation:
		pool, cursor = e.view.Validation(), &e.cursors[1]
	default:
		return fmt.Errorf("%w: load in %s", ErrIllegalMode, e.mode)
	}
	sample, s, err := pool.Next(cursor)
	if err != nil {
		e.observed = false
		return fmt.Errorf("load %s sample: %w", e.mode, err)
	}
	e.current = sample
	e.split = s
	e.label = e.labeler.Label(s)
	e.observed = true
	return nil
}

// Score counts correct decisions since the last Reset.
func (e *Environment[S]) Score() float64 {
	return float64(e.confusion.Trace())
}

func (e *Environment[S]) IsTerminal() bool { return false }

// Observation returns the current sample; ok is false while parked.
func (e *Environment[S]) Observation() (S, bool) {
	return e.current, e.observed
}

func (e *Environment[S]) CurrentSplit() split.Split { return e.split }

func (e *Environment[S]) CurrentLabel() int { return e.label }

// SetObservation installs sample directly, bypassing the pools. Used by
// inference, where the sample comes from the caller.
func (e *Environment[S]) SetObservation(sample S) {
	e.current = sample
	e.split = split.Unknown
	e.label = -1
	e.observed = true
}

// Confusion returns a snapshot of the confusion matrix.
func (e *Environment[S]) Confusion() *stats.Confusion {
	return e.confusion.Clone()
}

// Clone returns an environment with its own generator, cursors and
// confusion matrix over the same view.
func (e *Environment[S]) Clone() *Environment[S] {
	c := &Environment[S]{
		view:      e.view,
		labeler:   e.labeler,
		mode:      e.mode,
		rng:       rand.New(rand.NewSource(0)),
		cursors:   e.cursors,
		current:   e.current,
		split:     e.split,
		label:     e.label,
		observed:  e.observed,
		confusion: e.confusion.Clone(),
	}
	return c
}
