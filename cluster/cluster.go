package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrDegenerateClustering reports input that cannot support the
// requested partition, such as fewer points than clusters.
var ErrDegenerateClustering = errors.New("degenerate clustering input")

// Method represents the available clustering algorithms
type Method int

const (
	KMeans Method = iota
	Hierarchical
	DBSCAN
)

// String returns the method name
func (m Method) String() string {
	switch m {
	case KMeans:
		return "kmeans"
	case Hierarchical:
		return "hierarchical"
	case DBSCAN:
		return "dbscan"
	default:
		return "unknown"
	}
}

// Metric represents the distance measure used between feature vectors
type Metric int

const (
	Euclidean Metric = iota
	Cosine
)

// Options contains parameters shared by all clustering methods
type Options struct {
	Method        Method  `json:"method"`
	Metric        Metric  `json:"metric"`
	NumClusters   int     `json:"num_clusters"`   // fixed k; ignored by DBSCAN
	MaxIterations int     `json:"max_iterations"` // k-means iteration cap
	Tolerance     float64 `json:"tolerance"`      // k-means convergence threshold

	// DBSCAN specific parameters. Zero values select data-driven
	// defaults at fit time.
	Epsilon   float64 `json:"epsilon"`
	MinPoints int     `json:"min_points"`

	Seed int64 `json:"seed"` // k-means++ seeding; same seed, same labels
}

// DefaultOptions returns the standard clustering configuration
func DefaultOptions() Options {
	return Options{
		Method:        KMeans,
		Metric:        Euclidean,
		NumClusters:   3,
		MaxIterations: 100,
		Tolerance:     1e-4,
		Epsilon:       0,
		MinPoints:     2,
		Seed:          42,
	}
}

// Result contains a complete partition of the input: every point gets
// a label in [0, NumClusters), noise included.
type Result struct {
	Labels      []int       `json:"labels"`
	Centroids   [][]float64 `json:"centroids"`
	NumClusters int         `json:"num_clusters"`
}

// Engine runs a configured clustering method over feature vectors.
//
// References:
//   - Arthur, D., & Vassilvitskii, S. (2007). "k-means++: The advantages
//     of careful seeding"
//   - Ester, M., et al. (1996). "A density-based algorithm for
//     discovering clusters in large spatial databases with noise"
//   - Rousseeuw, P. J. (1987). "Silhouettes: a graphical aid to the
//     interpretation and validation of cluster analysis"
type Engine struct {
	opts Options
	rng  *rand.Rand
}

// NewEngine creates an engine with default options
func NewEngine() *Engine {
	return NewEngineWithOptions(DefaultOptions())
}

// NewEngineWithOptions creates an engine with custom options
func NewEngineWithOptions(opts Options) *Engine {
	return &Engine{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
}

// Fit partitions the data with the configured method. Every input
// point is assigned to exactly one cluster.
func (e *Engine) Fit(data [][]float64) (*Result, error) {
	if err := e.validate(data); err != nil {
		return nil, err
	}

	// Identical vectors collapse to a single cluster regardless of the
	// requested k; forcing a split would produce arbitrary labels.
	if allIdentical(data) {
		labels := make([]int, len(data))
		centroid := make([]float64, len(data[0]))
		copy(centroid, data[0])
		return &Result{
			Labels:      labels,
			Centroids:   [][]float64{centroid},
			NumClusters: 1,
		}, nil
	}

	switch e.opts.Method {
	case KMeans:
		return e.kmeans(data, e.opts.NumClusters)
	case Hierarchical:
		return e.hierarchical(data, e.opts.NumClusters)
	case DBSCAN:
		return e.dbscan(data)
	default:
		return nil, fmt.Errorf("unsupported clustering method %d", e.opts.Method)
	}
}

func (e *Engine) validate(data [][]float64) error {
	n := len(data)
	if n == 0 {
		return fmt.Errorf("%w: no data points", ErrDegenerateClustering)
	}

	dim := len(data[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-dimensional points", ErrDegenerateClustering)
	}
	for i, point := range data {
		if len(point) != dim {
			return fmt.Errorf("%w: point %d has dimension %d, want %d",
				ErrDegenerateClustering, i, len(point), dim)
		}
	}

	if e.opts.Method != DBSCAN {
		k := e.opts.NumClusters
		if k < 1 {
			return fmt.Errorf("%w: num_clusters must be at least 1, got %d",
				ErrDegenerateClustering, k)
		}
		if k > n {
			return fmt.Errorf("%w: %d clusters requested for %d points",
				ErrDegenerateClustering, k, n)
		}
	}

	return nil
}

// distance dispatches on the configured metric
func (e *Engine) distance(a, b []float64) float64 {
	switch e.opts.Metric {
	case Cosine:
		return cosineDistance(a, b)
	default:
		return euclideanDistance(a, b)
	}
}

func euclideanDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// cosineDistance is 1 minus cosine similarity; zero vectors are treated
// as maximally distant
func cosineDistance(a, b []float64) float64 {
	dot := 0.0
	normA := 0.0
	normB := 0.0
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func allIdentical(data [][]float64) bool {
	first := data[0]
	for _, point := range data[1:] {
		for j := range point {
			if point[j] != first[j] {
				return false
			}
		}
	}
	return true
}

// centroidsOf averages the member points of each label. numClusters
// must cover every label present.
func centroidsOf(data [][]float64, labels []int, numClusters int) [][]float64 {
	dim := len(data[0])
	centroids := make([][]float64, numClusters)
	sizes := make([]int, numClusters)
	for i := range centroids {
		centroids[i] = make([]float64, dim)
	}

	for i, point := range data {
		c := labels[i]
		sizes[c]++
		for j := range point {
			centroids[c][j] += point[j]
		}
	}

	for i := range centroids {
		if sizes[i] > 0 {
			for j := range centroids[i] {
				centroids[i][j] /= float64(sizes[i])
			}
		}
	}

	return centroids
}
