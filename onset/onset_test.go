package onset

import (
	"math"
	"testing"

	"github.com/sliceforge/sliceforge/decode"
)

const testRate = 44100

// clickTrain synthesizes a percussive test signal: short decaying
// bursts at the given onset positions over a quiet noise floor.
func clickTrain(totalSec float64, onsetsSec []float64) []float64 {
	n := int(totalSec * testRate)
	out := make([]float64, n)

	// Low-level tone floor keeps digital silence out of the baseline
	// without adding high-frequency content between bursts
	for i := range out {
		out[i] = 0.001 * math.Sin(2*math.Pi*100*float64(i)/testRate)
	}

	burstLen := int(0.08 * testRate)
	for _, t := range onsetsSec {
		start := int(t * testRate)
		for i := 0; i < burstLen && start+i < n; i++ {
			decay := math.Exp(-8.0 * float64(i) / float64(burstLen))
			tone := math.Sin(2*math.Pi*180*float64(i)/testRate) +
				0.6*math.Sin(2*math.Pi*2400*float64(i)/testRate) +
				0.3*math.Sin(float64(start+i)*78.233)
			out[start+i] += 0.7 * decay * tone
		}
	}

	return out
}

func signalOf(samples []float64) decode.Signal {
	return decode.Signal{Samples: samples, SampleRate: testRate}
}

func TestDetectSilenceEmpty(t *testing.T) {
	sig := signalOf(make([]float64, 2*testRate))

	for _, algo := range []Algorithm{Energy, SuperFlux, IRCAM, Multiscale} {
		opts := DefaultOptions()
		opts.Algorithm = algo
		if onsets := Detect(sig, opts); len(onsets) != 0 {
			t.Errorf("%s: silence produced %d onsets, want 0", algo, len(onsets))
		}
	}
}

func TestDetectEmptySignal(t *testing.T) {
	if onsets := Detect(signalOf(nil), DefaultOptions()); onsets != nil {
		t.Errorf("empty signal produced %d onsets", len(onsets))
	}
}

func TestDetectFindsBursts(t *testing.T) {
	onsetsSec := []float64{0.5, 1.1, 1.7, 2.3}
	sig := signalOf(clickTrain(3.0, onsetsSec))

	for _, algo := range []Algorithm{Energy, SuperFlux, IRCAM, Multiscale} {
		opts := DefaultOptions()
		opts.Algorithm = algo
		got := Detect(sig, opts)

		if len(got) == 0 {
			t.Errorf("%s: no onsets found in click train", algo)
			continue
		}

		// Every detection must be near a true burst (within 50 ms)
		tolerance := int(0.05 * testRate)
		for _, pos := range got {
			nearest := math.Inf(1)
			for _, trueSec := range onsetsSec {
				d := math.Abs(float64(pos - int(trueSec*testRate)))
				if d < nearest {
					nearest = d
				}
			}
			if nearest > float64(tolerance) {
				t.Errorf("%s: onset at %d is %d samples from any true burst", algo, pos, int(nearest))
			}
		}
	}
}

func TestDetectSorted(t *testing.T) {
	sig := signalOf(clickTrain(3.0, []float64{0.4, 1.0, 1.6, 2.2, 2.8}))

	opts := DefaultOptions()
	got := Detect(sig, opts)
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("onsets not strictly ascending: %v", got)
		}
	}
}

func TestDetectMinSpacing(t *testing.T) {
	sig := signalOf(clickTrain(3.0, []float64{0.5, 1.0, 1.5, 2.0, 2.5}))

	opts := DefaultOptions()
	opts.Algorithm = Energy
	opts.MinSpacingSec = 0.4
	got := Detect(sig, opts)

	minGap := int(opts.MinSpacingSec * testRate)
	for i := 1; i < len(got); i++ {
		if got[i]-got[i-1] < minGap {
			t.Errorf("gap %d below minimum spacing %d", got[i]-got[i-1], minGap)
		}
	}
}

func TestDetectSelectionRange(t *testing.T) {
	sig := signalOf(clickTrain(3.0, []float64{0.5, 1.5, 2.5}))

	opts := DefaultOptions()
	opts.Algorithm = Energy
	opts.SelectionStart = testRate // skip the first second
	opts.SelectionEnd = 2 * testRate

	got := Detect(sig, opts)
	for _, pos := range got {
		if pos < opts.SelectionStart || pos >= opts.SelectionEnd {
			t.Errorf("onset %d outside selection [%d, %d)", pos, opts.SelectionStart, opts.SelectionEnd)
		}
	}
}

func TestDetectMarkersRefinesNearRough(t *testing.T) {
	sig := signalOf(clickTrain(2.0, []float64{0.5, 1.2}))

	opts := DefaultOptions()
	opts.Algorithm = Energy
	rough := Detect(sig, opts)
	markers := DetectMarkers(sig, opts)

	if len(markers) != len(rough) {
		t.Fatalf("markers = %d, rough = %d", len(markers), len(rough))
	}

	back := testRate * 25 / 1000
	forward := testRate * 10 / 1000
	for i, m := range markers {
		lo := rough[i] - back
		hi := rough[i] + forward
		if m.SamplePosition < lo || m.SamplePosition > hi {
			t.Errorf("refined %d outside [%d, %d] around rough %d", m.SamplePosition, lo, hi, rough[i])
		}
		if m.Group != -1 || m.CustomEnd != -1 {
			t.Errorf("new marker should be unassigned, got group=%d end=%d", m.Group, m.CustomEnd)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]Algorithm{
		"energy":     Energy,
		"superflux":  SuperFlux,
		"ircam":      IRCAM,
		"multiscale": Multiscale,
		"":           SuperFlux,
	}
	for name, want := range cases {
		got, err := ParseAlgorithm(name)
		if err != nil {
			t.Errorf("ParseAlgorithm(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", name, got, want)
		}
	}

	if _, err := ParseAlgorithm("bogus"); err == nil {
		t.Error("expected error for unknown algorithm name")
	}
}

func TestRegions(t *testing.T) {
	markers := []Marker{
		{SamplePosition: 3000, CustomEnd: -1, Group: -1},
		{SamplePosition: 1000, CustomEnd: -1, Group: -1},
		{SamplePosition: 2000, CustomEnd: 2500, Group: -1},
	}

	regions := Regions(markers, 5000)
	if len(regions) != 3 {
		t.Fatalf("regions = %d, want 3", len(regions))
	}

	// Sorted: 1000 -> next marker 2000
	if regions[0] != (Region{Start: 1000, End: 2000}) {
		t.Errorf("region 0 = %+v", regions[0])
	}
	// Custom end wins over the next marker
	if regions[1].Start != 2000 || regions[1].End != 2500 {
		t.Errorf("region 1 = %+v, want [2000, 2500)", regions[1])
	}
	// Last marker runs to the total
	if regions[2] != (Region{Start: 3000, End: 5000}) {
		t.Errorf("region 2 = %+v", regions[2])
	}
}

func TestRegionsEmpty(t *testing.T) {
	if got := Regions(nil, 1000); got != nil {
		t.Errorf("expected nil regions, got %v", got)
	}
}

func TestRegionStatsOutliers(t *testing.T) {
	regions := []Region{
		{0, 1000}, {1000, 2100}, {2100, 3050}, {3050, 4100},
		{4100, 5000}, {5000, 6050}, {6050, 15000},
	}

	rs := ComputeRegionStats(regions)
	if rs.MedianLen <= 0 || rs.IQR < 0 {
		t.Fatalf("bad stats: %+v", rs)
	}

	outliers := OutlierRegions(regions)
	if len(outliers) != 1 || outliers[0] != 6 {
		t.Errorf("outliers = %v, want [6]", outliers)
	}
}

func TestRefinerOutOfRange(t *testing.T) {
	r := NewRefiner(testRate)
	samples := clickTrain(1.0, []float64{0.5})

	// A rough index at the very edge must clamp, not panic
	if got := r.Refine(samples, len(samples)+100); got < 0 || got >= len(samples) {
		t.Errorf("refined index %d out of bounds", got)
	}
	if got := r.Refine(samples, -50); got < 0 || got >= len(samples) {
		t.Errorf("refined index %d out of bounds", got)
	}
	if got := r.Refine(nil, 10); got != 0 {
		t.Errorf("empty signal refined to %d, want 0", got)
	}
}

func TestRefinerOffset(t *testing.T) {
	samples := clickTrain(1.0, []float64{0.5})
	rough := int(0.5 * testRate)

	base := NewRefiner(testRate)
	basePos := base.Refine(samples, rough)

	shifted := NewRefinerWithParams(testRate, DefaultRefinerParams())
	shifted.params.OffsetMs = -5
	shiftedPos := shifted.Refine(samples, rough)

	wantShift := testRate * 5 / 1000
	if basePos-shiftedPos != wantShift {
		t.Errorf("offset moved cut by %d samples, want %d", basePos-shiftedPos, wantShift)
	}
}
