package targets

import (
	"fmt"
	"sync"

	"cupart/internal/dataset"
	"cupart/internal/split"
)

type fakeLoader struct {
	mu      sync.Mutex
	fail    map[uint64]bool
	failAll bool
	seen    []uint64
}

func (l *fakeLoader) Load(index uint64) (dataset.Features, split.Split, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, index)
	if l.failAll || l.fail[index] {
		return nil, split.Unknown, fmt.Errorf("%w: /data/%d.csv: missing", dataset.ErrOpen, index)
	}
	return dataset.Features{float64(index)}, split.Split(index % uint64(split.Count)), nil
}

func (l *fakeLoader) indices() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]uint64(nil), l.seen...)
}
