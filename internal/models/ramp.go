package models

import "fmt"

// MinRampStep is the finest spacing, in seconds, between ramp breakpoints.
const MinRampStep = 10

// Breakpoint is a target value that takes effect once Elapsed seconds of an
// entry have passed.
type Breakpoint struct {
	Elapsed int
	Value   int
}

// Breakpoints approximates a ramp target over duration seconds as a staircase.
// Steps are at least MinRampStep seconds apart and widen to duration/delta for
// shallow ramps, so the step count tracks the size of the change. A ramp whose
// start equals its end yields a single constant breakpoint.
func Breakpoints(t Target, duration int) ([]Breakpoint, error) {
	if !t.IsRamp() {
		return nil, fmt.Errorf("%w: %s target is not a ramp", ErrContractViolation, t.typ)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: ramp duration %d, want > 0", ErrContractViolation, duration)
	}

	delta := t.end.v - t.start.v
	if delta == 0 {
		return []Breakpoint{{Elapsed: 0, Value: t.start.v}}, nil
	}

	step := max(MinRampStep, int(float64(duration)/float64(delta)))

	points := make([]Breakpoint, 0, duration/step+1)
	for elapsed := 0; elapsed <= duration; elapsed += step {
		v, err := t.Evaluate(float64(elapsed) / float64(duration))
		if err != nil {
			return nil, err
		}
		points = append(points, Breakpoint{Elapsed: elapsed, Value: v})
	}
	return points, nil
}
