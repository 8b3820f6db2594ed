package models

import (
	"fmt"
	"strings"
)

// SegmentType classifies a block of a workout.
type SegmentType int

const (
	Warmup SegmentType = iota
	Cooldown
	Interval
	Steady
	FreeRide
	Ramp
)

var segmentTypeLabels = map[SegmentType]string{
	Warmup:   "warmup",
	Cooldown: "cooldown",
	Interval: "interval",
	Steady:   "steadystate",
	FreeRide: "freeride",
	Ramp:     "ramp",
}

// String returns the lowercase label of the segment type.
func (t SegmentType) String() string {
	if s, ok := segmentTypeLabels[t]; ok {
		return s
	}
	return fmt.Sprintf("SegmentType(%d)", int(t))
}

// SegmentEntry is the smallest timed unit of a workout.
type SegmentEntry struct {
	Duration int // seconds
	Name     string
	Targets  TargetSet
}

// IsRamp reports whether any of the entry's targets is a ramp.
func (e SegmentEntry) IsRamp() bool {
	return e.Targets.HasRamp()
}

// Segment is a named, typed, repeatable group of entries.
type Segment struct {
	Type    SegmentType
	Name    string
	Entries []SegmentEntry
	Repeat  int
}

// SegmentOption customizes a Segment built by NewSegment.
type SegmentOption func(*Segment)

// WithName sets the segment name.
func WithName(name string) SegmentOption {
	return func(s *Segment) { s.Name = name }
}

// WithRepeat sets how many times the entries are executed.
func WithRepeat(n int) SegmentOption {
	return func(s *Segment) { s.Repeat = n }
}

// NewSegment validates and builds a Segment. Repeat defaults to 1.
func NewSegment(typ SegmentType, entries []SegmentEntry, opts ...SegmentOption) (Segment, error) {
	s := Segment{Type: typ, Entries: entries, Repeat: 1}
	for _, opt := range opts {
		opt(&s)
	}
	if len(s.Entries) == 0 {
		return Segment{}, fmt.Errorf("%s segment: no entries", typ)
	}
	if s.Repeat < 1 {
		return Segment{}, fmt.Errorf("%s segment: repeat %d, want >= 1", typ, s.Repeat)
	}
	for i, e := range s.Entries {
		if e.Duration < 0 {
			return Segment{}, fmt.Errorf("%s segment: entry %d has negative duration %d", typ, i, e.Duration)
		}
	}
	return s, nil
}

// Description returns the name, or the upper-cased type label when unnamed.
func (s Segment) Description() string {
	if s.Name != "" {
		return s.Name
	}
	return strings.ToUpper(s.Type.String())
}

// Duration returns the total length in seconds including repeats.
func (s Segment) Duration() int {
	var sum int
	for _, e := range s.Entries {
		sum += e.Duration
	}
	return s.Repeat * sum
}
