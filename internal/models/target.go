package models

import (
	"errors"
	"fmt"
)

// ErrContractViolation marks a programming error by the caller, such as
// evaluating a target outside [0, 1]. It is never caused by user input.
var ErrContractViolation = errors.New("contract violation")

// TargetType identifies the physiological quantity a Target constrains.
type TargetType int

const (
	FTPRelative TargetType = iota // percent of functional threshold power
	Power                         // absolute watts
	Cadence                       // rpm
	HeartRate                     // bpm
)

var targetTypeLabels = map[TargetType]string{
	FTPRelative: "ftp_relative",
	Power:       "power",
	Cadence:     "cadence",
	HeartRate:   "heartrate",
}

// String returns the lowercase label of the target type.
func (t TargetType) String() string {
	if s, ok := targetTypeLabels[t]; ok {
		return s
	}
	return fmt.Sprintf("TargetType(%d)", int(t))
}

// Num is a raw numeric bound as read from a source file. The zero value is absent.
type Num struct {
	v       float64
	isFloat bool
	set     bool
}

// Int returns an integer bound.
func Int(v int) Num { return Num{v: float64(v), set: true} }

// Float returns a floating point bound. For FTPRelative targets a float is a
// fraction of FTP and is scaled to percentage points.
func Float(v float64) Num { return Num{v: v, isFloat: true, set: true} }

// IsSet reports whether the bound was provided.
func (n Num) IsSet() bool { return n.set }

// Bounds groups the raw inputs of a Target.
type Bounds struct {
	Value Num
	Low   Num
	High  Num
	Start Num
	End   Num
}

// bound is an optional normalized integer.
type bound struct {
	v   int
	set bool
}

func (b bound) get() (int, bool) { return b.v, b.set }

// Target is a single constraint (scalar, range or ramp) on one TargetType.
// Targets are immutable once built.
type Target struct {
	typ   TargetType
	value bound
	low   bound
	high  bound
	start bound
	end   bound
}

// NewTarget normalizes raw bounds into a Target. Floats on an FTPRelative
// target are stored as integer percentage points (0.85 -> 85); every other
// input is truncated toward zero.
func NewTarget(typ TargetType, b Bounds) Target {
	return Target{
		typ:   typ,
		value: normalize(typ, b.Value),
		low:   normalize(typ, b.Low),
		high:  normalize(typ, b.High),
		start: normalize(typ, b.Start),
		end:   normalize(typ, b.End),
	}
}

func normalize(typ TargetType, n Num) bound {
	if !n.set {
		return bound{}
	}
	if n.isFloat && typ == FTPRelative {
		return bound{v: int(100 * n.v), set: true}
	}
	return bound{v: int(n.v), set: true}
}

// Type returns the unit the target's bounds are expressed in.
func (t Target) Type() TargetType { return t.typ }

// Value returns the fixed target and whether it is set.
func (t Target) Value() (int, bool) { return t.value.get() }

// Low returns the lower bound of a range target and whether it is set.
func (t Target) Low() (int, bool) { return t.low.get() }

// High returns the upper bound of a range target and whether it is set.
func (t Target) High() (int, bool) { return t.high.get() }

// Start returns the ramp's starting value and whether it is set.
func (t Target) Start() (int, bool) { return t.start.get() }

// End returns the ramp's final value and whether it is set.
func (t Target) End() (int, bool) { return t.end.get() }

// IsRamp reports whether both ramp bounds are set.
func (t Target) IsRamp() bool { return t.start.set && t.end.set }

// IsRange reports whether both range bounds are set.
func (t Target) IsRange() bool { return t.low.set && t.high.set }

// IsValid reports whether the target carries a scalar, a range or a ramp.
func (t Target) IsValid() bool { return t.value.set || t.IsRange() || t.IsRamp() }

// Evaluate returns the commanded value at relative time frac in [0, 1].
// Ramps are linearly interpolated and truncated; other targets return their
// scalar value.
func (t Target) Evaluate(frac float64) (int, error) {
	if frac < 0 || frac > 1 {
		return 0, fmt.Errorf("%w: evaluate %s target at %v, want 0 <= t <= 1", ErrContractViolation, t.typ, frac)
	}
	if t.IsRamp() {
		// The explicit conversion keeps the multiply from being fused with the add.
		return int(float64(t.start.v) + float64(frac*float64(t.end.v-t.start.v))), nil
	}
	if !t.value.set {
		return 0, fmt.Errorf("%w: %s target has no scalar value", ErrContractViolation, t.typ)
	}
	return t.value.v, nil
}
