package cluster

import (
	"fmt"
	"sort"
)

// NaturalBreaks partitions one-dimensional values into numClasses
// contiguous classes by splitting at the largest gaps in the sorted
// sequence. Classes are numbered in ascending value order: label 0
// holds the smallest values. Every value gets a label.
//
// Gap splitting is the fast approximation of Jenks' optimization: for
// well-separated tiers, which is what loudness layers are, the largest
// gaps and the variance-optimal breaks coincide.
func NaturalBreaks(values []float64, numClasses int) ([]int, error) {
	n := len(values)
	if n == 0 {
		return nil, fmt.Errorf("%w: no values", ErrDegenerateClustering)
	}
	if numClasses < 1 {
		return nil, fmt.Errorf("%w: num_classes must be at least 1, got %d",
			ErrDegenerateClustering, numClasses)
	}

	if numClasses == 1 || n == 1 {
		return make([]int, n), nil
	}

	// Sort indices by value, keeping the original order recoverable
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	// Gaps between adjacent sorted values; the numClasses-1 largest
	// become class boundaries
	type gap struct {
		after int // sorted position the gap follows
		size  float64
	}
	gaps := make([]gap, 0, n-1)
	for i := 0; i < n-1; i++ {
		size := values[order[i+1]] - values[order[i]]
		if size > 0 {
			gaps = append(gaps, gap{after: i, size: size})
		}
	}

	// Fewer distinct values than classes: one class per distinct value
	wantBreaks := numClasses - 1
	if len(gaps) < wantBreaks {
		wantBreaks = len(gaps)
	}

	sort.Slice(gaps, func(a, b int) bool {
		if gaps[a].size != gaps[b].size {
			return gaps[a].size > gaps[b].size
		}
		return gaps[a].after < gaps[b].after
	})

	breaks := make([]int, wantBreaks)
	for i := range breaks {
		breaks[i] = gaps[i].after
	}
	sort.Ints(breaks)

	labels := make([]int, n)
	class := 0
	nextBreak := 0
	for pos, idx := range order {
		labels[idx] = class
		if nextBreak < len(breaks) && pos == breaks[nextBreak] {
			class++
			nextBreak++
		}
	}

	return labels, nil
}

// BreaksFromThresholds assigns each value the index of the first
// threshold bucket it falls below. Thresholds must be ascending; a
// value at or above the last threshold lands in the final class
// (len(thresholds)).
func BreaksFromThresholds(values, thresholds []float64) []int {
	labels := make([]int, len(values))
	for i, v := range values {
		class := len(thresholds)
		for t, bound := range thresholds {
			if v < bound {
				class = t
				break
			}
		}
		labels[i] = class
	}
	return labels
}
