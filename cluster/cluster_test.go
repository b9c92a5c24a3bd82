package cluster

import (
	"errors"
	"math"
	"testing"
)

// twoBlobs builds two well-separated 2-D point clouds
func twoBlobs() [][]float64 {
	return [][]float64{
		{0.0, 0.1}, {0.1, 0.0}, {0.2, 0.1}, {0.1, 0.2},
		{5.0, 5.1}, {5.1, 5.0}, {5.2, 5.1}, {5.1, 5.2},
	}
}

func TestFitEmptyData(t *testing.T) {
	_, err := NewEngine().Fit(nil)
	if !errors.Is(err, ErrDegenerateClustering) {
		t.Errorf("err = %v, want ErrDegenerateClustering", err)
	}
}

func TestFitTooManyClusters(t *testing.T) {
	opts := DefaultOptions()
	opts.NumClusters = 5
	_, err := NewEngineWithOptions(opts).Fit([][]float64{{1}, {2}, {3}})
	if !errors.Is(err, ErrDegenerateClustering) {
		t.Errorf("err = %v, want ErrDegenerateClustering", err)
	}
}

func TestFitMismatchedDimensions(t *testing.T) {
	_, err := NewEngine().Fit([][]float64{{1, 2}, {1}, {3, 4}})
	if !errors.Is(err, ErrDegenerateClustering) {
		t.Errorf("err = %v, want ErrDegenerateClustering", err)
	}
}

func TestFitIdenticalVectors(t *testing.T) {
	data := [][]float64{{1, 2}, {1, 2}, {1, 2}, {1, 2}}

	opts := DefaultOptions()
	opts.NumClusters = 3
	result, err := NewEngineWithOptions(opts).Fit(data)
	if err != nil {
		t.Fatal(err)
	}

	if result.NumClusters != 1 {
		t.Errorf("identical vectors gave %d clusters, want 1", result.NumClusters)
	}
	for i, label := range result.Labels {
		if label != 0 {
			t.Errorf("label[%d] = %d, want 0", i, label)
		}
	}
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	data := twoBlobs()

	opts := DefaultOptions()
	opts.NumClusters = 2
	result, err := NewEngineWithOptions(opts).Fit(data)
	if err != nil {
		t.Fatal(err)
	}

	assertCompletePartition(t, result, len(data))
	assertBlobsSeparated(t, result.Labels)
}

func TestKMeansDeterministicBySeed(t *testing.T) {
	data := twoBlobs()

	opts := DefaultOptions()
	opts.NumClusters = 2
	opts.Seed = 7

	a, err := NewEngineWithOptions(opts).Fit(data)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewEngineWithOptions(opts).Fit(data)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("labels differ across identical seeded runs: %v vs %v", a.Labels, b.Labels)
		}
	}
}

func TestHierarchicalSeparatesBlobs(t *testing.T) {
	data := twoBlobs()

	opts := DefaultOptions()
	opts.Method = Hierarchical
	opts.NumClusters = 2
	result, err := NewEngineWithOptions(opts).Fit(data)
	if err != nil {
		t.Fatal(err)
	}

	assertCompletePartition(t, result, len(data))
	assertBlobsSeparated(t, result.Labels)
}

func TestDBSCANCompletePartition(t *testing.T) {
	// Two dense blobs plus one far outlier the density scan will call
	// noise; reassignment must still give it a label
	data := append(twoBlobs(), []float64{100, 100})

	opts := DefaultOptions()
	opts.Method = DBSCAN
	opts.Epsilon = 1.0
	opts.MinPoints = 2
	result, err := NewEngineWithOptions(opts).Fit(data)
	if err != nil {
		t.Fatal(err)
	}

	assertCompletePartition(t, result, len(data))
	if result.NumClusters != 2 {
		t.Errorf("clusters = %d, want 2", result.NumClusters)
	}
}

func TestDBSCANNoDenseRegion(t *testing.T) {
	data := [][]float64{{0, 0}, {10, 10}, {20, 0}, {30, 30}}

	opts := DefaultOptions()
	opts.Method = DBSCAN
	opts.Epsilon = 0.1
	opts.MinPoints = 3
	result, err := NewEngineWithOptions(opts).Fit(data)
	if err != nil {
		t.Fatal(err)
	}

	// Everything collapses to one cluster rather than all-noise
	assertCompletePartition(t, result, len(data))
	if result.NumClusters != 1 {
		t.Errorf("clusters = %d, want 1", result.NumClusters)
	}
}

func TestCosineMetric(t *testing.T) {
	if d := cosineDistance([]float64{1, 0}, []float64{2, 0}); math.Abs(d) > 1e-12 {
		t.Errorf("parallel vectors distance = %f, want 0", d)
	}
	if d := cosineDistance([]float64{1, 0}, []float64{0, 1}); math.Abs(d-1) > 1e-12 {
		t.Errorf("orthogonal vectors distance = %f, want 1", d)
	}
	if d := cosineDistance([]float64{0, 0}, []float64{1, 1}); math.Abs(d-1) > 1e-12 {
		t.Errorf("zero vector distance = %f, want 1", d)
	}
}

func TestNaturalBreaksFourTiers(t *testing.T) {
	// Twelve one-shots recorded at four velocity tiers
	rms := []float64{
		0.02, 0.021, 0.019,
		0.25, 0.24, 0.26,
		0.6, 0.58, 0.61,
		0.9, 0.88, 0.92,
	}

	labels, err := NaturalBreaks(rms, 4)
	if err != nil {
		t.Fatal(err)
	}

	want := []int{0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3}
	for i := range labels {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
}

func TestNaturalBreaksAscendingClasses(t *testing.T) {
	values := []float64{0.9, 0.1, 0.5, 0.11, 0.89, 0.52}
	labels, err := NaturalBreaks(values, 3)
	if err != nil {
		t.Fatal(err)
	}

	// Class index must increase with value
	for i := range values {
		for j := range values {
			if values[i] < values[j] && labels[i] > labels[j] {
				t.Errorf("value %f in class %d but larger %f in class %d",
					values[i], labels[i], values[j], labels[j])
			}
		}
	}
}

func TestNaturalBreaksFewerDistinctValues(t *testing.T) {
	values := []float64{1, 1, 1, 2, 2, 2}
	labels, err := NaturalBreaks(values, 4)
	if err != nil {
		t.Fatal(err)
	}

	// Only two distinct values, so only two classes can exist
	if got := maxOf(labels) + 1; got != 2 {
		t.Errorf("classes = %d, want 2", got)
	}
}

func TestNaturalBreaksSingleClass(t *testing.T) {
	labels, err := NaturalBreaks([]float64{3, 1, 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, l := range labels {
		if l != 0 {
			t.Errorf("label[%d] = %d, want 0", i, l)
		}
	}
}

func TestBreaksFromThresholds(t *testing.T) {
	values := []float64{0.1, 0.3, 0.5, 0.9}
	labels := BreaksFromThresholds(values, []float64{0.2, 0.6})

	want := []int{0, 1, 1, 2}
	for i := range labels {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}
}

func TestSilhouetteRange(t *testing.T) {
	data := twoBlobs()

	opts := DefaultOptions()
	opts.NumClusters = 2
	eng := NewEngineWithOptions(opts)
	result, err := eng.Fit(data)
	if err != nil {
		t.Fatal(err)
	}

	score := eng.Silhouette(data, result.Labels)
	if score < -1 || score > 1 {
		t.Fatalf("silhouette = %f, outside [-1, 1]", score)
	}
	// Clean separation scores high
	if score < 0.5 {
		t.Errorf("silhouette = %f, want > 0.5 for well-separated blobs", score)
	}
}

func TestSilhouetteSingleCluster(t *testing.T) {
	eng := NewEngine()
	if got := eng.Silhouette(twoBlobs(), make([]int, 8)); got != 0 {
		t.Errorf("single-cluster silhouette = %f, want 0", got)
	}
}

func TestAutoKFindsTwo(t *testing.T) {
	data := twoBlobs()

	result, err := NewEngine().AutoK(data, 2, 4)
	if err != nil {
		t.Fatal(err)
	}

	if result.NumClusters != 2 {
		t.Errorf("AutoK chose %d clusters, want 2", result.NumClusters)
	}
	assertBlobsSeparated(t, result.Labels)
}

func TestAutoKHierarchical(t *testing.T) {
	data := twoBlobs()

	opts := DefaultOptions()
	opts.Method = Hierarchical
	result, err := NewEngineWithOptions(opts).AutoK(data, 2, 4)
	if err != nil {
		t.Fatal(err)
	}

	if result.NumClusters != 2 {
		t.Errorf("AutoK chose %d clusters, want 2", result.NumClusters)
	}
	assertBlobsSeparated(t, result.Labels)
}

func TestAutoKMethodChangesPartition(t *testing.T) {
	// One tight cloud: the density scan keeps it whole while the sweep
	// with k-means is forced to split it
	data := [][]float64{
		{0.0, 0.0}, {0.1, 0.0}, {0.0, 0.1},
		{0.1, 0.1}, {0.05, 0.05}, {0.02, 0.08},
	}

	opts := DefaultOptions()
	opts.Method = DBSCAN
	opts.Epsilon = 1.0
	dense, err := NewEngineWithOptions(opts).AutoK(data, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if dense.NumClusters != 1 {
		t.Errorf("density scan gave %d clusters, want 1", dense.NumClusters)
	}

	split, err := NewEngine().AutoK(data, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if split.NumClusters < 2 {
		t.Errorf("k-means sweep gave %d clusters, want >= 2", split.NumClusters)
	}
}

func TestAutoKSingleClusterCandidate(t *testing.T) {
	data := [][]float64{{1, 2}, {1, 2}, {1, 2}, {1, 2}}

	result, err := NewEngine().AutoK(data, 1, 3)
	if err != nil {
		t.Fatal(err)
	}

	if result.NumClusters != 1 {
		t.Errorf("AutoK chose %d clusters, want 1", result.NumClusters)
	}
	for i, label := range result.Labels {
		if label != 0 {
			t.Errorf("label[%d] = %d, want 0", i, label)
		}
	}
}

func TestAutoKDegenerate(t *testing.T) {
	_, err := NewEngine().AutoK([][]float64{{1}}, 2, 5)
	if !errors.Is(err, ErrDegenerateClustering) {
		t.Errorf("err = %v, want ErrDegenerateClustering", err)
	}
}

// assertCompletePartition checks that every point has a valid label and
// centroids match the cluster count
func assertCompletePartition(t *testing.T, result *Result, n int) {
	t.Helper()

	if len(result.Labels) != n {
		t.Fatalf("labels = %d, want %d", len(result.Labels), n)
	}
	for i, label := range result.Labels {
		if label < 0 || label >= result.NumClusters {
			t.Fatalf("label[%d] = %d, outside [0, %d)", i, label, result.NumClusters)
		}
	}
	if len(result.Centroids) != result.NumClusters {
		t.Fatalf("centroids = %d, want %d", len(result.Centroids), result.NumClusters)
	}
}

// assertBlobsSeparated checks the two 4-point blobs of twoBlobs landed
// in different clusters
func assertBlobsSeparated(t *testing.T, labels []int) {
	t.Helper()

	for i := 1; i < 4; i++ {
		if labels[i] != labels[0] {
			t.Fatalf("first blob split: %v", labels)
		}
	}
	for i := 5; i < 8; i++ {
		if labels[i] != labels[4] {
			t.Fatalf("second blob split: %v", labels)
		}
	}
	if labels[0] == labels[4] {
		t.Fatalf("blobs merged: %v", labels)
	}
}

func maxOf(labels []int) int {
	m := 0
	for _, l := range labels {
		if l > m {
			m = l
		}
	}
	return m
}
