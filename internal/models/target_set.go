package models

import "iter"

// TargetSet holds at most one valid Target per TargetType, in insertion order.
type TargetSet struct {
	targets []Target
	index   map[TargetType]int
}

// NewTargetSet drops invalid targets. When a type repeats, the later target
// replaces the earlier one but keeps its position.
func NewTargetSet(targets ...Target) TargetSet {
	s := TargetSet{index: make(map[TargetType]int, len(targets))}
	for _, t := range targets {
		if !t.IsValid() {
			continue
		}
		if i, ok := s.index[t.typ]; ok {
			s.targets[i] = t
			continue
		}
		s.index[t.typ] = len(s.targets)
		s.targets = append(s.targets, t)
	}
	return s
}

// Has reports whether a target of the given type is present.
func (s TargetSet) Has(typ TargetType) bool {
	_, ok := s.index[typ]
	return ok
}

// Get returns the target of the given type. The boolean is false when absent.
func (s TargetSet) Get(typ TargetType) (Target, bool) {
	i, ok := s.index[typ]
	if !ok {
		return Target{}, false
	}
	return s.targets[i], true
}

// Len returns the number of targets.
func (s TargetSet) Len() int { return len(s.targets) }

// Types returns the present target types in insertion order.
func (s TargetSet) Types() []TargetType {
	types := make([]TargetType, len(s.targets))
	for i, t := range s.targets {
		types[i] = t.typ
	}
	return types
}

// All iterates over the targets in insertion order.
func (s TargetSet) All() iter.Seq2[TargetType, Target] {
	return func(yield func(TargetType, Target) bool) {
		for _, t := range s.targets {
			if !yield(t.typ, t) {
				return
			}
		}
	}
}

// HasRamp reports whether any target is a ramp.
func (s TargetSet) HasRamp() bool {
	for _, t := range s.targets {
		if t.IsRamp() {
			return true
		}
	}
	return false
}
