package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses parents from ranked candidates for replication.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []Scored, eliteCount int) (Candidate, error)
}

// EliteSelector picks uniformly from the top elite set.
type EliteSelector struct{}

func (EliteSelector) Name() string {
	return "elite"
}

func (EliteSelector) PickParent(rng *rand.Rand, ranked []Scored, eliteCount int) (Candidate, error) {
	if rng == nil {
		return Candidate{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return Candidate{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}
	return ranked[rng.Intn(eliteCount)].Candidate, nil
}

// TournamentSelector samples candidates and picks the best fitness among them.
type TournamentSelector struct {
	PoolSize       int
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []Scored, eliteCount int) (Candidate, error) {
	if rng == nil {
		return Candidate{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return Candidate{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}

	poolSize := s.PoolSize
	if poolSize <= 0 {
		poolSize = eliteCount * 2
	}
	if poolSize < eliteCount {
		poolSize = eliteCount
	}
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}
	if tournamentSize > poolSize {
		tournamentSize = poolSize
	}

	best := ranked[rng.Intn(poolSize)]
	for i := 1; i < tournamentSize; i++ {
		candidate := ranked[rng.Intn(poolSize)]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best.Candidate, nil
}

func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "elite":
		return EliteSelector{}, nil
	case "tournament":
		return TournamentSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selector: %s", name)
	}
}
