// Package failure models the closed set of pump failure classes a classifier
// can emit.
package failure

import (
	"fmt"
	"strings"
)

// Kind is a failure class known to the recommendation rules.
type Kind int

const (
	Other Kind = iota
	Normal
	Unbalance
	Rubbing
	FaultySensor
	Misalignment
)

var kindLabels = map[Kind]string{
	Normal:       "Normal",
	Unbalance:    "Unbalance",
	Rubbing:      "Rubbing",
	FaultySensor: "Faulty sensor",
	Misalignment: "Misalignment",
	Other:        "Other",
}

// String returns the canonical label of k.
func (k Kind) String() string {
	if s, ok := kindLabels[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf maps a model label to its Kind. Labels outside the known set are Other.
func KindOf(label string) Kind {
	for k, s := range kindLabels {
		if k != Other && s == label {
			return k
		}
	}
	return Other
}

// Class is one compiled model label.
type Class struct {
	Label string
	Kind  Kind
}

// ClassSet is the ordered class list of a loaded model. It is immutable after
// Compile and safe for concurrent use.
type ClassSet struct {
	classes []Class
	index   map[string]int
}

// Compile builds a ClassSet from the model's ordered labels.
func Compile(labels []string) (*ClassSet, error) {
	if len(labels) == 0 {
		return nil, ErrNoClasses
	}
	cs := &ClassSet{
		classes: make([]Class, len(labels)),
		index:   make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			return nil, fmt.Errorf("%w: position %d", ErrBlankLabel, i)
		}
		if _, dup := cs.index[l]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, l)
		}
		cs.index[l] = i
		cs.classes[i] = Class{Label: l, Kind: KindOf(l)}
	}
	return cs, nil
}

// Len returns the number of classes.
func (cs *ClassSet) Len() int { return len(cs.classes) }

// At returns the class at model output position i.
func (cs *ClassSet) At(i int) Class { return cs.classes[i] }

// Labels returns a copy of the ordered labels.
func (cs *ClassSet) Labels() []string {
	out := make([]string, len(cs.classes))
	for i, c := range cs.classes {
		out[i] = c.Label
	}
	return out
}

// Classes returns a copy of the compiled classes.
func (cs *ClassSet) Classes() []Class {
	return append([]Class(nil), cs.classes...)
}

// Has reports whether a class of kind k is present.
func (cs *ClassSet) Has(k Kind) bool {
	for _, c := range cs.classes {
		if c.Kind == k {
			return true
		}
	}
	return false
}

// Resolve returns the class for label, or ErrUnknownLabel.
func (cs *ClassSet) Resolve(label string) (Class, error) {
	i, ok := cs.index[label]
	if !ok {
		return Class{}, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return cs.classes[i], nil
}
