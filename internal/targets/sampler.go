package targets

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

var ErrExhausted = errors.New("database indices exhausted")

// Strategy selects how database indices are drawn while filling a pool.
type Strategy string

const (
	// WithReplacement draws every slot independently; duplicates are expected.
	WithReplacement Strategy = "with_replacement"
	// WithoutReplacement never repeats an index within one fill.
	WithoutReplacement Strategy = "without_replacement"
)

func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", WithReplacement:
		return WithReplacement, nil
	case WithoutReplacement:
		return WithoutReplacement, nil
	default:
		return "", fmt.Errorf("unsupported sampling strategy: %s", name)
	}
}

type drawer interface {
	next() (uint64, bool)
}

func newDrawer(strategy Strategy, rng *rand.Rand, size uint64) (drawer, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if size == 0 {
		return nil, errors.New("database size must be > 0")
	}
	switch strategy {
	case "", WithReplacement:
		return replacementDrawer{rng: rng, size: size}, nil
	case WithoutReplacement:
		return &permutationDrawer{rng: rng, size: size, swapped: make(map[uint64]uint64)}, nil
	default:
		return nil, fmt.Errorf("unsupported sampling strategy: %s", strategy)
	}
}

type replacementDrawer struct {
	rng  *rand.Rand
	size uint64
}

func (d replacementDrawer) next() (uint64, bool) {
	return uint64(d.rng.Int63n(int64(d.size))), true
}

// permutationDrawer is a lazy Fisher-Yates shuffle over [0, size); only
// displaced slots are stored.
type permutationDrawer struct {
	rng     *rand.Rand
	size    uint64
	i       uint64
	swapped map[uint64]uint64
}

func (d *permutationDrawer) next() (uint64, bool) {
	if d.i >= d.size {
		return 0, false
	}
	j := d.i + uint64(d.rng.Int63n(int64(d.size-d.i)))
	vi := d.value(d.i)
	vj := d.value(j)
	d.swapped[j] = vi
	delete(d.swapped, d.i)
	d.i++
	return vj, true
}

func (d *permutationDrawer) value(k uint64) uint64 {
	if v, ok := d.swapped[k]; ok {
		return v
	}
	return k
}
