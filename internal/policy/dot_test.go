package policy

import (
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"cupart/internal/dataset"
	"cupart/internal/split"
)

func TestMarshalUnmarshalPreservesDecisions(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p, err := RandomLinear(rng, 2, 5, 0.75)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	p.SetWeight(1, 4, 0.00001)

	data, err := p.Marshal(split.BinaryHorizontal.String())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), "digraph BTH {") {
		t.Fatalf("unexpected header: %.40s", data)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, data)
	}
	if got.Actions() != 2 || got.Inputs() != 5 {
		t.Fatalf("shape: %dx%d", got.Actions(), got.Inputs())
	}
	for a := 0; a < 2; a++ {
		if got.Bias(a) != p.Bias(a) {
			t.Fatalf("bias %d: got %v want %v", a, got.Bias(a), p.Bias(a))
		}
		for i := 0; i < 5; i++ {
			if got.Weight(a, i) != p.Weight(a, i) {
				t.Fatalf("weight %d,%d: got %v want %v", a, i, got.Weight(a, i), p.Weight(a, i))
			}
		}
	}
}

func TestSaveLoadPolicy(t *testing.T) {
	p, _ := NewLinear(2, 3)
	p.SetBias(1, 1)
	path := filepath.Join(t.TempDir(), "QT.dot")
	if err := Save(path, "QT", p); err != nil {
		t.Fatalf("save: %v", err)
	}
	pol, err := LoadPolicy[dataset.Features](path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := pol.Decide(t.Context(), dataset.Features{0, 0, 0})
	if err != nil || got != 1 {
		t.Fatalf("got %d err %v", got, err)
	}
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"missing arity": "digraph p {\n\tin0;\n}\n",
		"bad node":      "digraph p {\n\tgraph [\n\t\tarity=2\n\t\tinputs=1\n\t];\n\tx0;\n}\n",
		"not dot":       "digraph {",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(input)); !errors.Is(err, ErrMalformedArtifact) {
				t.Fatalf("expected ErrMalformedArtifact, got %v", err)
			}
		})
	}
}

func TestMarshalRejectsNonFinite(t *testing.T) {
	p, _ := NewLinear(2, 1)
	p.SetWeight(0, 0, math.Inf(1))
	if _, err := p.Marshal("p"); err == nil {
		t.Fatal("expected non-finite error")
	}
}

func TestGraphName(t *testing.T) {
	if graphName("BTH+TTH") != "BTH_TTH" || graphName("") != "policy" || graphName("9x") != "p_9x" {
		t.Fatal("unexpected graph names")
	}
}
