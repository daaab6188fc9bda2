package querytrace

import (
	"math"
	"time"
)

// Unit is the native time unit in which a QueryEvent reports its durations.
type Unit time.Duration

// Common native units.
const (
	Nanosecond  = Unit(time.Nanosecond)
	Microsecond = Unit(time.Microsecond)
	Millisecond = Unit(time.Millisecond)
	Second      = Unit(time.Second)
)

// Nanos converts a duration expressed in u to nanoseconds.
//
// Integer and floating point kinds are scaled by the unit. A time.Duration is
// already absolute and is returned as is. Anything else, including nil, negative
// values and NaN, converts to 0.
func (u Unit) Nanos(v any) int64 {
	if u <= 0 {
		u = Nanosecond
	}

	scale := int64(u)

	var n int64

	switch d := v.(type) {
	case time.Duration:
		n = int64(d)
	case int:
		n = int64(d) * scale
	case int8:
		n = int64(d) * scale
	case int16:
		n = int64(d) * scale
	case int32:
		n = int64(d) * scale
	case int64:
		n = d * scale
	case uint:
		n = clampUint(uint64(d), scale)
	case uint8:
		n = int64(d) * scale
	case uint16:
		n = int64(d) * scale
	case uint32:
		n = int64(d) * scale
	case uint64:
		n = clampUint(d, scale)
	case float32:
		n = fromFloat(float64(d), scale)
	case float64:
		n = fromFloat(d, scale)
	default:
		return 0
	}

	if n < 0 {
		return 0
	}

	return n
}

// Duration is Nanos as a time.Duration.
func (u Unit) Duration(v any) time.Duration {
	return time.Duration(u.Nanos(v))
}

func clampUint(v uint64, scale int64) int64 {
	if v > math.MaxInt64/uint64(scale) {
		return math.MaxInt64
	}

	return int64(v) * scale
}

func fromFloat(v float64, scale int64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}

	ns := v * float64(scale)
	if ns >= math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(math.Round(ns))
}
