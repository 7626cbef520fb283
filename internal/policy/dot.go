package policy

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// The artifact is a digraph with graph attributes arity and inputs, one
// node a<k> per action carrying its bias, one node in<i> per input, and an
// edge in<i> -> a<k> carrying each weight.

var ErrMalformedArtifact = errors.New("malformed policy artifact")

// Marshal encodes p as a DOT digraph named name.
func (p *Linear) Marshal(name string) ([]byte, error) {
	g := newDOTGraph()
	g.attrs["arity"] = strconv.Itoa(p.Actions())
	g.attrs["inputs"] = strconv.Itoa(p.Inputs())

	actions := make([]*dotNode, p.Actions())
	for a := range actions {
		bias, err := formatParam(p.Bias(a))
		if err != nil {
			return nil, fmt.Errorf("action %d bias: %w", a, err)
		}
		n := g.NewNode().(*dotNode)
		n.dotID = "a" + strconv.Itoa(a)
		n.attrs["bias"] = bias
		g.AddNode(n)
		actions[a] = n
	}
	for i := 0; i < p.Inputs(); i++ {
		in := g.NewNode().(*dotNode)
		in.dotID = "in" + strconv.Itoa(i)
		g.AddNode(in)
		for a, out := range actions {
			w, err := formatParam(p.Weight(a, i))
			if err != nil {
				return nil, fmt.Errorf("weight %d->%d: %w", i, a, err)
			}
			e := g.NewEdge(in, out).(*dotEdge)
			e.attrs["weight"] = w
			g.SetEdge(e)
		}
	}
	return dot.Marshal(g, graphName(name), "", "\t")
}

// graphName maps name onto a bare DOT identifier.
func graphName(name string) string {
	if name == "" {
		return "policy"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "p_" + name
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Unmarshal decodes a DOT digraph written by Marshal.
func Unmarshal(data []byte) (*Linear, error) {
	g := newDOTGraph()
	if err := dot.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedArtifact, err)
	}
	arity, err := strconv.Atoi(g.attrs["arity"])
	if err != nil {
		return nil, fmt.Errorf("%w: arity %q", ErrMalformedArtifact, g.attrs["arity"])
	}
	inputs, err := strconv.Atoi(g.attrs["inputs"])
	if err != nil {
		return nil, fmt.Errorf("%w: inputs %q", ErrMalformedArtifact, g.attrs["inputs"])
	}
	p, err := NewLinear(arity, inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedArtifact, err)
	}

	nodes := g.Nodes()
	for nodes.Next() {
		n := nodes.Node().(*dotNode)
		kind, idx, err := n.role()
		if err != nil {
			return nil, err
		}
		switch kind {
		case "a":
			if idx >= arity {
				return nil, fmt.Errorf("%w: action node %s beyond arity %d", ErrMalformedArtifact, n.dotID, arity)
			}
			bias, err := parseParam(n.attrs["bias"])
			if err != nil {
				return nil, fmt.Errorf("%w: node %s bias: %w", ErrMalformedArtifact, n.dotID, err)
			}
			p.SetBias(idx, bias)
		case "in":
			if idx >= inputs {
				return nil, fmt.Errorf("%w: input node %s beyond %d inputs", ErrMalformedArtifact, n.dotID, inputs)
			}
			targets := g.From(n.ID())
			for targets.Next() {
				to := targets.Node().(*dotNode)
				toKind, action, err := to.role()
				if err != nil || toKind != "a" || action >= arity {
					return nil, fmt.Errorf("%w: edge %s -> %s", ErrMalformedArtifact, n.dotID, to.dotID)
				}
				e := g.Edge(n.ID(), to.ID()).(*dotEdge)
				w, err := parseParam(e.attrs["weight"])
				if err != nil {
					return nil, fmt.Errorf("%w: edge %s -> %s: %w", ErrMalformedArtifact, n.dotID, to.dotID, err)
				}
				p.SetWeight(action, idx, w)
			}
		}
	}
	return p, nil
}

func Save(path, name string, p *Linear) error {
	data, err := p.Marshal(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func Load(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// formatParam avoids exponent notation, which is not a DOT numeral.
func formatParam(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("non-finite parameter %v", v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

func parseParam(s string) (float64, error) {
	s = strings.Trim(s, `"`)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

type attributes map[string]string

func (a attributes) Attributes() []encoding.Attribute {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]encoding.Attribute, 0, len(keys))
	for _, k := range keys {
		out = append(out, encoding.Attribute{Key: k, Value: a[k]})
	}
	return out
}

func (a attributes) SetAttribute(attr encoding.Attribute) error {
	a[attr.Key] = attr.Value
	return nil
}

type dotGraph struct {
	*simple.DirectedGraph
	attrs attributes
}

func newDOTGraph() *dotGraph {
	return &dotGraph{DirectedGraph: simple.NewDirectedGraph(), attrs: attributes{}}
}

func (g *dotGraph) NewNode() graph.Node {
	return &dotNode{id: g.DirectedGraph.NewNode().ID(), attrs: attributes{}}
}

func (g *dotGraph) NewEdge(from, to graph.Node) graph.Edge {
	return &dotEdge{from: from, to: to, attrs: attributes{}}
}

func (g *dotGraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return g.attrs, attributes{}, attributes{}
}

func (g *dotGraph) DOTAttributeSetters() (graph, node, edge encoding.AttributeSetter) {
	return g.attrs, attributes{}, attributes{}
}

type dotNode struct {
	id    int64
	dotID string
	attrs attributes
}

func (n *dotNode) ID() int64                                 { return n.id }
func (n *dotNode) DOTID() string                             { return n.dotID }
func (n *dotNode) SetDOTID(id string)                        { n.dotID = id }
func (n *dotNode) Attributes() []encoding.Attribute          { return n.attrs.Attributes() }
func (n *dotNode) SetAttribute(attr encoding.Attribute) error { return n.attrs.SetAttribute(attr) }

// role splits a node id such as "a3" or "in17".
func (n *dotNode) role() (string, int, error) {
	for _, prefix := range []string{"in", "a"} {
		if rest, ok := strings.CutPrefix(n.dotID, prefix); ok {
			idx, err := strconv.Atoi(rest)
			if err != nil || idx < 0 {
				break
			}
			return prefix, idx, nil
		}
	}
	return "", 0, fmt.Errorf("%w: unexpected node %q", ErrMalformedArtifact, n.dotID)
}

type dotEdge struct {
	from, to graph.Node
	attrs    attributes
}

func (e *dotEdge) From() graph.Node                          { return e.from }
func (e *dotEdge) To() graph.Node                            { return e.to }
func (e *dotEdge) ReversedEdge() graph.Edge                  { return &dotEdge{from: e.to, to: e.from, attrs: e.attrs} }
func (e *dotEdge) Attributes() []encoding.Attribute          { return e.attrs.Attributes() }
func (e *dotEdge) SetAttribute(attr encoding.Attribute) error { return e.attrs.SetAttribute(attr) }
