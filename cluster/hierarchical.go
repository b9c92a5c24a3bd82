package cluster

import "math"

// hierarchical implements agglomerative clustering with average
// linkage: every point starts as its own cluster and the closest pair
// merges until k clusters remain. Deterministic by construction, no
// seeding involved.
func (e *Engine) hierarchical(data [][]float64, k int) (*Result, error) {
	n := len(data)

	// Pairwise distances are cached once; linkage only ever reads them
	distMatrix := make([][]float64, n)
	for i := range n {
		distMatrix[i] = make([]float64, n)
		for j := i + 1; j < n; j++ {
			d := e.distance(data[i], data[j])
			distMatrix[i][j] = d
		}
	}
	for i := range n {
		for j := 0; j < i; j++ {
			distMatrix[i][j] = distMatrix[j][i]
		}
	}

	clusters := make([][]int, n)
	for i := range n {
		clusters[i] = []int{i}
	}

	for len(clusters) > k {
		minDist := math.Inf(1)
		mergeI, mergeJ := -1, -1

		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				dist := averageLinkage(clusters[i], clusters[j], distMatrix)
				if dist < minDist {
					minDist = dist
					mergeI, mergeJ = i, j
				}
			}
		}

		clusters[mergeI] = append(clusters[mergeI], clusters[mergeJ]...)
		clusters = append(clusters[:mergeJ], clusters[mergeJ+1:]...)
	}

	labels := make([]int, n)
	for c, members := range clusters {
		for _, idx := range members {
			labels[idx] = c
		}
	}

	return &Result{
		Labels:      labels,
		Centroids:   centroidsOf(data, labels, len(clusters)),
		NumClusters: len(clusters),
	}, nil
}

// averageLinkage is the mean pairwise distance between two clusters
func averageLinkage(a, b []int, distMatrix [][]float64) float64 {
	sum := 0.0
	for _, i := range a {
		for _, j := range b {
			sum += distMatrix[i][j]
		}
	}
	return sum / float64(len(a)*len(b))
}
