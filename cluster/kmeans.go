package cluster

import "math"

// kmeans implements Lloyd's algorithm with k-means++ initialization.
// Seeding comes from the engine's rng, so the same seed over the same
// data yields the same partition.
func (e *Engine) kmeans(data [][]float64, k int) (*Result, error) {
	n := len(data)
	dim := len(data[0])

	centers := e.seedCenters(data, k)
	labels := make([]int, n)

	for iter := 0; iter < e.opts.MaxIterations; iter++ {
		// Assignment step: ties go to the lowest cluster index, which
		// keeps the assignment deterministic
		moved := 0
		for i, point := range data {
			best := 0
			minDist := math.Inf(1)
			for c, center := range centers {
				dist := e.distance(point, center)
				if dist < minDist {
					minDist = dist
					best = c
				}
			}
			if labels[i] != best {
				moved++
			}
			labels[i] = best
		}

		// Update step
		newCenters := make([][]float64, k)
		sizes := make([]int, k)
		for c := range newCenters {
			newCenters[c] = make([]float64, dim)
		}
		for i, point := range data {
			c := labels[i]
			sizes[c]++
			for j := range point {
				newCenters[c][j] += point[j]
			}
		}

		movement := 0.0
		for c := range newCenters {
			if sizes[c] == 0 {
				// An emptied cluster keeps its previous center instead
				// of collapsing to the origin
				copy(newCenters[c], centers[c])
				continue
			}
			for j := range newCenters[c] {
				newCenters[c][j] /= float64(sizes[c])
			}
			movement += e.distance(centers[c], newCenters[c])
		}
		centers = newCenters

		if moved == 0 || movement < e.opts.Tolerance {
			break
		}
	}

	return &Result{
		Labels:      labels,
		Centroids:   centers,
		NumClusters: k,
	}, nil
}

// seedCenters picks k initial centers with the k-means++ scheme: the
// first uniformly at random, each next with probability proportional to
// the squared distance from its nearest chosen center.
func (e *Engine) seedCenters(data [][]float64, k int) [][]float64 {
	n := len(data)
	dim := len(data[0])
	centers := make([][]float64, k)

	centers[0] = make([]float64, dim)
	copy(centers[0], data[e.rng.Intn(n)])

	for i := 1; i < k; i++ {
		distances := make([]float64, n)
		total := 0.0
		for j, point := range data {
			minDist := math.Inf(1)
			for c := range i {
				dist := e.distance(point, centers[c])
				if dist < minDist {
					minDist = dist
				}
			}
			distances[j] = minDist * minDist
			total += distances[j]
		}

		centers[i] = make([]float64, dim)
		if total <= 0 {
			// All remaining points coincide with chosen centers
			copy(centers[i], data[e.rng.Intn(n)])
			continue
		}

		r := e.rng.Float64() * total
		cum := 0.0
		picked := false
		for j, dist := range distances {
			cum += dist
			if cum >= r {
				copy(centers[i], data[j])
				picked = true
				break
			}
		}
		if !picked {
			copy(centers[i], data[n-1])
		}
	}

	return centers
}
