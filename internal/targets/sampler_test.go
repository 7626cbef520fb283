package targets

import (
	"math/rand"
	"testing"
)

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"":                    WithReplacement,
		"with_replacement":    WithReplacement,
		"WITHOUT_REPLACEMENT": WithoutReplacement,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q want %q", in, got, want)
		}
	}
	if _, err := ParseStrategy("reservoir"); err == nil {
		t.Fatal("expected unsupported strategy error")
	}
}

func TestPermutationDrawerCoversRangeOnce(t *testing.T) {
	d, err := newDrawer(WithoutReplacement, rand.New(rand.NewSource(7)), 50)
	if err != nil {
		t.Fatalf("new drawer: %v", err)
	}
	seen := make(map[uint64]bool)
	for i := 0; i < 50; i++ {
		v, ok := d.next()
		if !ok {
			t.Fatalf("drawer exhausted after %d draws", i)
		}
		if v >= 50 {
			t.Fatalf("index out of range: %d", v)
		}
		if seen[v] {
			t.Fatalf("duplicate index %d", v)
		}
		seen[v] = true
	}
	if _, ok := d.next(); ok {
		t.Fatal("expected drawer to be exhausted")
	}
}

func TestReplacementDrawerStaysInRange(t *testing.T) {
	d, err := newDrawer(WithReplacement, rand.New(rand.NewSource(1)), 3)
	if err != nil {
		t.Fatalf("new drawer: %v", err)
	}
	for i := 0; i < 100; i++ {
		v, ok := d.next()
		if !ok || v >= 3 {
			t.Fatalf("unexpected draw %d ok=%v", v, ok)
		}
	}
}

func TestNewDrawerRejectsEmptyDatabase(t *testing.T) {
	if _, err := newDrawer(WithReplacement, rand.New(rand.NewSource(1)), 0); err == nil {
		t.Fatal("expected error for empty database")
	}
}
