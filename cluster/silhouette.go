package cluster

import (
	"fmt"
	"math"
	"sync"
)

// Silhouette computes the mean silhouette coefficient of a partition,
// in [-1, 1]. Higher means tighter, better-separated clusters. A
// single-cluster partition scores zero.
//
// Reference: Rousseeuw, P. J. (1987)
func (e *Engine) Silhouette(data [][]float64, labels []int) float64 {
	n := len(data)
	if n < 2 {
		return 0.0
	}

	numClusters := 0
	for _, label := range labels {
		if label+1 > numClusters {
			numClusters = label + 1
		}
	}
	if numClusters < 2 {
		return 0.0
	}

	sum := 0.0
	for i := range n {
		a := e.meanIntraDistance(data, labels, i)
		b := e.meanNearestClusterDistance(data, labels, i, numClusters)

		denom := math.Max(a, b)
		if denom > 0 {
			sum += (b - a) / denom
		}
	}

	return sum / float64(n)
}

// meanIntraDistance is the average distance from point i to the other
// members of its own cluster; zero for singletons.
func (e *Engine) meanIntraDistance(data [][]float64, labels []int, i int) float64 {
	sum := 0.0
	count := 0
	for j := range data {
		if j != i && labels[j] == labels[i] {
			sum += e.distance(data[i], data[j])
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return sum / float64(count)
}

// meanNearestClusterDistance is the smallest average distance from
// point i to the members of any other cluster.
func (e *Engine) meanNearestClusterDistance(data [][]float64, labels []int, i, numClusters int) float64 {
	sums := make([]float64, numClusters)
	counts := make([]int, numClusters)
	for j := range data {
		if labels[j] != labels[i] {
			sums[labels[j]] += e.distance(data[i], data[j])
			counts[labels[j]]++
		}
	}

	minAvg := math.Inf(1)
	for c := range numClusters {
		if counts[c] > 0 {
			avg := sums[c] / float64(counts[c])
			if avg < minAvg {
				minAvg = avg
			}
		}
	}
	if math.IsInf(minAvg, 1) {
		return 0.0
	}
	return minAvg
}

// AutoK sweeps k over [minK, maxK] with the engine's configured method,
// running the candidate fits concurrently, and returns the partition
// with the best mean silhouette. Candidate runs use seed + k so the
// sweep itself is deterministic. Ties go to the smaller k; k = 1 is a
// legal candidate and scores zero, so it wins only when every split
// scores worse than no split at all. The density scan chooses its own
// cluster count, so a DBSCAN engine fits once instead of sweeping.
func (e *Engine) AutoK(data [][]float64, minK, maxK int) (*Result, error) {
	if e.opts.Method == DBSCAN {
		return e.Fit(data)
	}

	n := len(data)
	if minK < 1 {
		minK = 1
	}
	if maxK > n {
		maxK = n
	}
	if minK > maxK {
		return nil, fmt.Errorf("%w: no viable cluster count in [%d, %d] for %d points",
			ErrDegenerateClustering, minK, maxK, n)
	}

	type candidate struct {
		k      int
		result *Result
		score  float64
		err    error
	}

	candidates := make([]candidate, maxK-minK+1)
	var wg sync.WaitGroup
	for k := minK; k <= maxK; k++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()

			opts := e.opts
			opts.NumClusters = k
			opts.Seed = e.opts.Seed + int64(k)
			eng := NewEngineWithOptions(opts)

			result, err := eng.Fit(data)
			slot := &candidates[k-minK]
			slot.k = k
			if err != nil {
				slot.err = err
				return
			}
			slot.result = result
			slot.score = eng.Silhouette(data, result.Labels)
		}(k)
	}
	wg.Wait()

	var best *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.err != nil {
			continue
		}
		if best == nil || c.score > best.score {
			best = c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("silhouette sweep: %w", candidates[0].err)
	}

	return best.result, nil
}
