// Package split names the partition decisions a VVC encoder can take for a
// coding unit.
package split

import (
	"fmt"
	"strings"
)

// Split is one partition decision. Values 0..5 match the label byte stored in
// binary sample files.
type Split uint8

const (
	NoSplit Split = iota
	QuadTree
	BinaryHorizontal
	BinaryVertical
	TernaryHorizontal
	TernaryVertical
	// Unknown marks an unparsable or out-of-range label. It is never a valid
	// classification target.
	Unknown
)

// Count is the number of valid split classes.
const Count = int(Unknown)

var mnemonics = [...]string{"NS", "QT", "BTH", "BTV", "TTH", "TTV"}

// All returns the six valid classes in label order.
func All() []Split {
	return []Split{NoSplit, QuadTree, BinaryHorizontal, BinaryVertical, TernaryHorizontal, TernaryVertical}
}

// Valid reports whether s names one of the six partition decisions.
func (s Split) Valid() bool {
	return s < Unknown
}

func (s Split) String() string {
	if !s.Valid() {
		return "UNKNOWN"
	}
	return mnemonics[s]
}

// Parse maps a mnemonic to its split. "NP" is accepted for NoSplit. Any other
// input yields Unknown.
func Parse(mnemonic string) Split {
	m := strings.ToUpper(strings.TrimSpace(mnemonic))
	if m == "NP" {
		return NoSplit
	}
	for i, name := range mnemonics {
		if m == name {
			return Split(i)
		}
	}
	return Unknown
}

// FromByte converts a raw label byte. Bytes above 5 yield Unknown.
func FromByte(b byte) Split {
	if b >= byte(Unknown) {
		return Unknown
	}
	return Split(b)
}

// ParseList parses a comma separated list of mnemonics such as "BTH,TTH".
func ParseList(list string) ([]Split, error) {
	parts := strings.Split(list, ",")
	out := make([]Split, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s := Parse(part)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown split mnemonic: %q", strings.TrimSpace(part))
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty split list")
	}
	return out, nil
}

// Specialization is the positive set of a binary classifier. A label is
// positive (1) iff it belongs to the set.
type Specialization struct {
	Positive []Split
}

// Specialize returns the specialization recognising exactly one class.
func Specialize(s Split) Specialization {
	return Specialization{Positive: []Split{s}}
}

// Label derives the binary label of l.
func (sp Specialization) Label(l Split) int {
	if sp.Contains(l) {
		return 1
	}
	return 0
}

func (sp Specialization) Contains(l Split) bool {
	for _, p := range sp.Positive {
		if p == l {
			return true
		}
	}
	return false
}

// Validate rejects empty sets, unknown classes, and sets covering every class.
func (sp Specialization) Validate() error {
	if len(sp.Positive) == 0 {
		return fmt.Errorf("specialization requires at least one positive class")
	}
	seen := make(map[Split]struct{}, len(sp.Positive))
	for _, p := range sp.Positive {
		if !p.Valid() {
			return fmt.Errorf("specialization contains invalid class %d", p)
		}
		seen[p] = struct{}{}
	}
	if len(seen) == Count {
		return fmt.Errorf("specialization covers every class")
	}
	return nil
}

// Name joins the positive mnemonics with '+', e.g. "BTH+TTH".
func (sp Specialization) Name() string {
	names := make([]string, 0, len(sp.Positive))
	for _, p := range sp.Positive {
		names = append(names, p.String())
	}
	return strings.Join(names, "+")
}
