package grouping

import (
	"math"

	"github.com/sliceforge/sliceforge/features"
	"github.com/sliceforge/sliceforge/stats"
)

// orderForPlayback assigns PlayOrder within each round-robin group
// using a greedy farthest-point walk: the first hit is the group's most
// typical member (nearest the centroid), and every following hit is the
// one farthest from everything already placed. Consecutive hits in the
// rotation therefore sound as different as the group allows.
func (p *Pipeline) orderForPlayback(assignments []Assignment, feats []*features.SampleFeatures) {
	normalized := stats.NormalizeColumns(features.Matrix(feats))

	groups := make(map[[2]int][]int)
	for i := range assignments {
		key := [2]int{assignments[i].Layer, assignments[i].RoundRobin}
		groups[key] = append(groups[key], i)
	}

	for _, members := range groups {
		order := diversityOrder(normalized, members)
		for pos, i := range order {
			assignments[i].PlayOrder = pos
		}
	}
}

// diversityOrder returns the member indices in farthest-point order
func diversityOrder(vectors [][]float64, members []int) []int {
	if len(members) <= 1 {
		return members
	}

	dim := len(vectors[members[0]])
	centroid := make([]float64, dim)
	for _, i := range members {
		for j, v := range vectors[i] {
			centroid[j] += v
		}
	}
	for j := range centroid {
		centroid[j] /= float64(len(members))
	}

	// Seed with the member nearest the centroid
	first := members[0]
	minDist := math.Inf(1)
	for _, i := range members {
		if d := squaredDistance(vectors[i], centroid); d < minDist {
			minDist = d
			first = i
		}
	}

	order := []int{first}
	remaining := make(map[int]bool, len(members)-1)
	for _, i := range members {
		if i != first {
			remaining[i] = true
		}
	}

	// minToPlaced tracks each candidate's distance to its nearest
	// already-placed member
	minToPlaced := make(map[int]float64, len(remaining))
	for i := range remaining {
		minToPlaced[i] = squaredDistance(vectors[i], vectors[first])
	}

	for len(remaining) > 0 {
		next := -1
		best := math.Inf(-1)
		for _, i := range members {
			if !remaining[i] {
				continue
			}
			if minToPlaced[i] > best {
				best = minToPlaced[i]
				next = i
			}
		}

		order = append(order, next)
		delete(remaining, next)
		for i := range remaining {
			if d := squaredDistance(vectors[i], vectors[next]); d < minToPlaced[i] {
				minToPlaced[i] = d
			}
		}
	}

	return order
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
