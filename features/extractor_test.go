package features

import (
	"math"
	"testing"

	"github.com/sliceforge/sliceforge/decode"
)

const testRate = 44100

// sine generates a steady tone
func sine(freq float64, duration float64) []float64 {
	n := int(duration * testRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

// decayingNoiseBurst approximates a percussive one-shot: white-ish
// content with an exponential decay
func decayingNoiseBurst(duration float64) []float64 {
	n := int(duration * testRate)
	out := make([]float64, n)
	phase := 0.0
	for i := range out {
		// Deterministic pseudo-noise from stacked sines
		phase += 1.0
		v := math.Sin(phase*12.9898) + 0.5*math.Sin(phase*78.233) + 0.25*math.Sin(phase*3.7)
		decay := math.Exp(-4.0 * float64(i) / float64(n))
		out[i] = 0.4 * v * decay
	}
	return out
}

func TestExtractEmpty(t *testing.T) {
	e := NewExtractor(testRate)
	if _, err := e.Extract(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestExtractShortSignalZeroed(t *testing.T) {
	e := NewExtractor(testRate)
	f, err := e.Extract(make([]float64, 100))
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range f.Row() {
		if v != 0 {
			t.Errorf("column %d = %f, want 0 for too-short signal", i, v)
		}
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(testRate)
	signal := decayingNoiseBurst(0.5)

	a, err := e.Extract(signal)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Extract(signal)
	if err != nil {
		t.Fatal(err)
	}

	rowA, rowB := a.Row(), b.Row()
	for i := range rowA {
		if rowA[i] != rowB[i] {
			t.Errorf("column %d differs across runs: %f vs %f", i, rowA[i], rowB[i])
		}
	}
}

func TestExtractAllFinite(t *testing.T) {
	e := NewExtractor(testRate)
	signals := [][]float64{
		sine(440, 0.3),
		decayingNoiseBurst(0.3),
		make([]float64, 8192), // digital silence
	}

	for si, signal := range signals {
		f, err := e.Extract(signal)
		if err != nil {
			t.Fatalf("signal %d: %v", si, err)
		}
		for i, v := range f.Row() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("signal %d column %d = %f, want finite", si, i, v)
			}
		}
	}
}

func TestExtractCentroidTracksPitch(t *testing.T) {
	e := NewExtractor(testRate)

	low, err := e.Extract(sine(220, 0.3))
	if err != nil {
		t.Fatal(err)
	}
	high, err := e.Extract(sine(3520, 0.3))
	if err != nil {
		t.Fatal(err)
	}

	if low.SpectralCentroidHz >= high.SpectralCentroidHz {
		t.Errorf("centroid of 220 Hz tone (%f) should be below 3520 Hz tone (%f)",
			low.SpectralCentroidHz, high.SpectralCentroidHz)
	}
}

func TestExtractSpansAttackWindow(t *testing.T) {
	// Low tone only during the first FFT frame, high tone for the rest
	// of the analysis window; the shape descriptors must see both
	e := NewExtractor(testRate)

	n := int(0.35 * testRate)
	signal := make([]float64, n)
	for i := range signal {
		freq := 3520.0
		if i < 2048 {
			freq = 220.0
		}
		signal[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}

	f, err := e.Extract(signal)
	if err != nil {
		t.Fatal(err)
	}

	if f.SpectralCentroidHz < 1000 {
		t.Errorf("centroid = %f Hz, want > 1000 when most of the window is high-frequency",
			f.SpectralCentroidHz)
	}
}

func TestExtractLoudnessScaling(t *testing.T) {
	e := NewExtractor(testRate)

	quiet := sine(440, 0.3)
	loud := make([]float64, len(quiet))
	for i, s := range quiet {
		loud[i] = s * 1.8
	}

	fq, err := e.Extract(quiet)
	if err != nil {
		t.Fatal(err)
	}
	fl, err := e.Extract(loud)
	if err != nil {
		t.Fatal(err)
	}

	if fl.RMS <= fq.RMS {
		t.Errorf("louder signal RMS (%f) should exceed quieter (%f)", fl.RMS, fq.RMS)
	}
	if fl.Peak <= fq.Peak {
		t.Errorf("louder signal peak (%f) should exceed quieter (%f)", fl.Peak, fq.Peak)
	}
}

func TestExtractSignal(t *testing.T) {
	sig, err := decode.FromSamples(sine(440, 0.3), testRate)
	if err != nil {
		t.Fatal(err)
	}

	f, err := NewExtractor(sig.SampleRate).ExtractSignal(sig)
	if err != nil {
		t.Fatal(err)
	}
	if f.RMS <= 0 {
		t.Errorf("RMS = %f, want > 0", f.RMS)
	}
}

func TestVectorWeighting(t *testing.T) {
	f := &SampleFeatures{RMS: 1, Peak: 1, DynamicRangeDB: 1, SpectralCentroidHz: 1}

	v := f.Vector(0.25)
	if math.Abs(v[0]-0.25) > 1e-12 {
		t.Errorf("loudness column = %f, want 0.25", v[0])
	}
	if math.Abs(v[3]-0.75) > 1e-12 {
		t.Errorf("timbre column = %f, want 0.75", v[3])
	}

	if got := len(v); got != NumScalarFeatures+NumMFCC {
		t.Errorf("vector length = %d, want %d", got, NumScalarFeatures+NumMFCC)
	}
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{100, 440, 1000, 8000} {
		back := MelToHz(HzToMel(hz))
		if math.Abs(back-hz) > 1e-6 {
			t.Errorf("round trip of %f Hz gave %f", hz, back)
		}
	}

	// Mel scale is monotonic
	if HzToMel(1000) >= HzToMel(2000) {
		t.Error("mel scale should be monotonically increasing")
	}
}

func TestMelFilterBankShape(t *testing.T) {
	bank := melFilterBank(26, 2048, testRate, 0, testRate/2)

	if len(bank) != 26 {
		t.Fatalf("filters = %d, want 26", len(bank))
	}
	for i, filter := range bank {
		if len(filter) != 1025 {
			t.Fatalf("filter %d length = %d, want 1025", i, len(filter))
		}
		sum := 0.0
		for _, w := range filter {
			if w < 0 {
				t.Errorf("filter %d has negative weight", i)
			}
			sum += w
		}
		if sum <= 0 {
			t.Errorf("filter %d is all zero", i)
		}
	}
}
