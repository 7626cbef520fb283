package evo

import (
	"context"
	"math/rand"
	"testing"
)

func newClimber(t *testing.T) *HillClimber {
	t.Helper()
	rng := rand.New(rand.NewSource(2))
	h, err := NewHillClimber(HillClimberConfig{
		PopulationSize: 6,
		EliteCount:     2,
		Actions:        2,
		Inputs:         3,
		Mutation:       &PerturbRandomWeight{Rand: rng, MaxDelta: 0.2},
		Seed:           4,
	})
	if err != nil {
		t.Fatalf("new hill climber: %v", err)
	}
	return h
}

func TestHillClimberKeepsElites(t *testing.T) {
	h := newClimber(t)
	pop := h.Population()
	if len(pop) != 6 {
		t.Fatalf("population: %d", len(pop))
	}
	scored := make([]Scored, len(pop))
	for i, c := range pop {
		scored[i] = Scored{Candidate: c, Fitness: float64(i)}
	}
	if err := h.Advance(context.Background(), scored); err != nil {
		t.Fatalf("advance: %v", err)
	}
	next := h.Population()
	if len(next) != 6 {
		t.Fatalf("next population: %d", len(next))
	}
	if next[0].ID != pop[5].ID || next[1].ID != pop[4].ID {
		t.Fatalf("expected elites first, got %s %s", next[0].ID, next[1].ID)
	}
	for _, c := range next[2:] {
		if c.ParentID != pop[5].ID && c.ParentID != pop[4].ID {
			t.Fatalf("offspring %s from non-elite parent %s", c.ID, c.ParentID)
		}
		if c.Operation != "perturb_random_weight" {
			t.Fatalf("unexpected operation %s", c.Operation)
		}
	}
	best, ok := h.Best()
	if !ok || best.ID != pop[5].ID || best.Fitness != 5 {
		t.Fatalf("unexpected best: %+v", best)
	}
}

func TestHillClimberRejectsMisalignedScores(t *testing.T) {
	h := newClimber(t)
	if err := h.Advance(context.Background(), nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestNewHillClimberValidation(t *testing.T) {
	if _, err := NewHillClimber(HillClimberConfig{PopulationSize: 2, EliteCount: 3, Actions: 2, Inputs: 1, Mutation: &PerturbRandomWeight{}}); err == nil {
		t.Fatal("expected elite count error")
	}
	if _, err := NewHillClimber(HillClimberConfig{PopulationSize: 2, EliteCount: 1, Actions: 2, Inputs: 1}); err == nil {
		t.Fatal("expected missing mutation error")
	}
}
