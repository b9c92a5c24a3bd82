package cluster

import (
	"math"
	"sort"
)

// dbscan implements density-based clustering followed by noise
// reassignment, so the partition stays complete: points the density
// scan marks as noise are attached to the nearest cluster centroid
// instead of being dropped.
func (e *Engine) dbscan(data [][]float64) (*Result, error) {
	n := len(data)

	eps := e.opts.Epsilon
	if eps <= 0 {
		eps = e.defaultEpsilon(data)
	}
	minPoints := e.opts.MinPoints
	if minPoints < 1 {
		minPoints = 2
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	visited := make([]bool, n)

	clusterID := 0
	for i := range n {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := e.neighborsWithin(data, i, eps)
		if len(neighbors) < minPoints {
			continue
		}

		labels[i] = clusterID

		seeds := make([]int, len(neighbors))
		copy(seeds, neighbors)
		for j := 0; j < len(seeds); j++ {
			q := seeds[j]
			if !visited[q] {
				visited[q] = true
				qNeighbors := e.neighborsWithin(data, q, eps)
				if len(qNeighbors) >= minPoints {
					seeds = append(seeds, qNeighbors...)
				}
			}
			if labels[q] == -1 {
				labels[q] = clusterID
			}
		}

		clusterID++
	}

	// No dense region at all: a single cluster covering everything is
	// the honest answer
	if clusterID == 0 {
		for i := range labels {
			labels[i] = 0
		}
		return &Result{
			Labels:      labels,
			Centroids:   centroidsOf(data, labels, 1),
			NumClusters: 1,
		}, nil
	}

	centroids := e.reassignNoise(data, labels, clusterID)

	return &Result{
		Labels:      labels,
		Centroids:   centroids,
		NumClusters: clusterID,
	}, nil
}

// reassignNoise moves every noise point to its nearest cluster
// centroid, then recomputes centroids over the full membership.
func (e *Engine) reassignNoise(data [][]float64, labels []int, numClusters int) [][]float64 {
	// Centroids from density members only, so noise doesn't drag them
	members := make([]int, 0, len(data))
	memberLabels := make([]int, 0, len(data))
	for i, label := range labels {
		if label >= 0 {
			members = append(members, i)
			memberLabels = append(memberLabels, label)
		}
	}

	memberData := make([][]float64, len(members))
	for i, idx := range members {
		memberData[i] = data[idx]
	}
	centroids := centroidsOf(memberData, memberLabels, numClusters)

	for i, label := range labels {
		if label >= 0 {
			continue
		}
		best := 0
		minDist := math.Inf(1)
		for c, centroid := range centroids {
			dist := e.distance(data[i], centroid)
			if dist < minDist {
				minDist = dist
				best = c
			}
		}
		labels[i] = best
	}

	return centroidsOf(data, labels, numClusters)
}

// neighborsWithin returns indices of points within eps of the given
// point, excluding the point itself
func (e *Engine) neighborsWithin(data [][]float64, pointIdx int, eps float64) []int {
	var neighbors []int
	for i := range data {
		if i == pointIdx {
			continue
		}
		if e.distance(data[pointIdx], data[i]) <= eps {
			neighbors = append(neighbors, i)
		}
	}
	return neighbors
}

// defaultEpsilon derives a neighborhood radius from the data itself:
// half the median pairwise distance. Scale-free, so it works on both
// raw and normalized features.
func (e *Engine) defaultEpsilon(data [][]float64) float64 {
	n := len(data)
	if n < 2 {
		return 1.0
	}

	distances := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			distances = append(distances, e.distance(data[i], data[j]))
		}
	}
	sort.Float64s(distances)

	median := distances[len(distances)/2]
	if median <= 0 {
		return 1.0
	}
	return median * 0.5
}
