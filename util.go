package swr

import "golang.org/x/exp/constraints"

// clamp returns v limited to the range [low, high].
func clamp[T constraints.Ordered](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
