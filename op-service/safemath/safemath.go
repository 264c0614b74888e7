// Package safemath holds overflow-aware arithmetic on unsigned integers.
package safemath

import "golang.org/x/exp/constraints"

// SaturatingAdd returns a+b, capped at the max value of the type.
func SaturatingAdd[V constraints.Unsigned](a, b V) V {
	out, overflow := SafeAdd(a, b)
	if overflow {
		return ^V(0)
	}
	return out
}

// SafeAdd returns a+b with wrap-around, and whether it wrapped.
func SafeAdd[V constraints.Unsigned](a, b V) (out V, overflow bool) {
	out = a + b
	overflow = out < a
	return
}
