package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"cupart/internal/policy"
)

type HillClimberConfig struct {
	PopulationSize int
	EliteCount     int
	Actions        int
	Inputs         int
	// InitScale is the standard deviation of the initial parameters.
	InitScale float64
	Selector  Selector
	Mutation  Operator
	Seed      int64
}

// HillClimber keeps the EliteCount best candidates of each generation
// unchanged and fills the rest of the population with mutated copies of
// selected parents.
type HillClimber struct {
	cfg        HillClimberConfig
	rng        *rand.Rand
	population []Candidate
	generation int
	best       *Scored
}

func NewHillClimber(cfg HillClimberConfig) (*HillClimber, error) {
	if cfg.PopulationSize <= 0 {
		return nil, errors.New("population size must be > 0")
	}
	if cfg.EliteCount <= 0 || cfg.EliteCount > cfg.PopulationSize {
		return nil, fmt.Errorf("invalid elite count: %d", cfg.EliteCount)
	}
	if cfg.Mutation == nil {
		return nil, errors.New("mutation operator is required")
	}
	if cfg.Selector == nil {
		cfg.Selector = EliteSelector{}
	}
	if cfg.InitScale <= 0 {
		cfg.InitScale = 0.1
	}
	h := &HillClimber{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
	for i := 0; i < cfg.PopulationSize; i++ {
		p, err := policy.RandomLinear(h.rng, cfg.Actions, cfg.Inputs, cfg.InitScale)
		if err != nil {
			return nil, err
		}
		h.population = append(h.population, Candidate{
			ID:        candidateID(0, i),
			Operation: "seed",
			Policy:    p,
		})
	}
	return h, nil
}

func (h *HillClimber) Population() []Candidate {
	return append([]Candidate(nil), h.population...)
}

// Best is the highest-scoring candidate seen so far.
func (h *HillClimber) Best() (Scored, bool) {
	if h.best == nil {
		return Scored{}, false
	}
	return *h.best, true
}

func (h *HillClimber) Advance(ctx context.Context, scored []Scored) error {
	if len(scored) != len(h.population) {
		return fmt.Errorf("scored %d candidates, population has %d", len(scored), len(h.population))
	}
	ranked := append([]Scored(nil), scored...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Fitness > ranked[j].Fitness })
	if h.best == nil || ranked[0].Fitness > h.best.Fitness {
		top := ranked[0]
		h.best = &top
	}

	h.generation++
	next := make([]Candidate, 0, h.cfg.PopulationSize)
	for i := 0; i < h.cfg.EliteCount; i++ {
		elite := ranked[i].Candidate
		next = append(next, Candidate{
			ID:        elite.ID,
			ParentID:  elite.ID,
			Operation: "elite_clone",
			Policy:    elite.Policy,
		})
	}
	for len(next) < h.cfg.PopulationSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		parent, err := h.cfg.Selector.PickParent(h.rng, ranked, h.cfg.EliteCount)
		if err != nil {
			return err
		}
		child, err := h.cfg.Mutation.Apply(ctx, parent.Policy)
		if err != nil {
			return fmt.Errorf("%s on %s: %w", h.cfg.Mutation.Name(), parent.ID, err)
		}
		next = append(next, Candidate{
			ID:        candidateID(h.generation, len(next)),
			ParentID:  parent.ID,
			Operation: h.cfg.Mutation.Name(),
			Policy:    child,
		})
	}
	h.population = next
	return nil
}

func candidateID(generation, index int) string {
	return fmt.Sprintf("g%d-%d", generation, index)
}
