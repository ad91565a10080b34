// Package alloc parses slash-separated percentage distributions such as
// "30/20/15/10/15/5/5" into fixed-width integer allocations.
package alloc

import (
	"strconv"
	"strings"
)

// Parse converts a slash-separated percent string into a distribution of
// exactly len(fallback) slots. Any malformed token makes the whole input
// invalid and the fallback is returned. Inputs whose parts sum to something
// other than 100 are rescaled by integer ratio; short inputs are padded with
// zeros and long inputs truncated.
func Parse(s string, fallback []int) []int {
	n := len(fallback)
	parts := strings.Split(strings.TrimSpace(s), "/")
	dist := make([]int, 0, n)
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return clone(fallback)
		}
		dist = append(dist, v)
	}
	if len(dist) == 0 {
		return clone(fallback)
	}
	total := 0
	for _, v := range dist {
		total += v
	}
	if total == 0 {
		return clone(fallback)
	}
	if total != 100 {
		for i, v := range dist {
			dist[i] = v * 100 / total
		}
	}
	for len(dist) < n {
		dist = append(dist, 0)
	}
	return dist[:n]
}

// Fractions converts an integer percent distribution into 0..1 weights.
// A zero-sum distribution yields equal weights.
func Fractions(dist []int) []float64 {
	total := 0
	for _, v := range dist {
		total += v
	}
	out := make([]float64, len(dist))
	if total == 0 {
		for i := range out {
			out[i] = 1 / float64(len(dist))
		}
		return out
	}
	for i, v := range dist {
		out[i] = float64(v) / float64(total)
	}
	return out
}

func clone(dist []int) []int {
	out := make([]int, len(dist))
	copy(out, dist)
	return out
}
