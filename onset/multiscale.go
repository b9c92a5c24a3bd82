package onset

import (
	"math"

	"github.com/sliceforge/sliceforge/stats"
)

// MultiscaleParams contains parameters for the time-domain detector
type MultiscaleParams struct {
	LagsMs        []float64 `json:"lags_ms"`         // difference lags (default 1, 2, 4, 8 ms)
	FastMs        float64   `json:"fast_ms"`         // fast envelope window (default 1 ms)
	SlowMs        float64   `json:"slow_ms"`         // slow envelope window (default 10 ms)
	SmoothMs      float64   `json:"smooth_ms"`       // zero-phase smoothing window
	SigmaScale    float64   `json:"sigma_scale"`     // sensitivity -> sigma multiplier (tunable default)
	MinSpacingSec float64   `json:"min_spacing_sec"` // refractory; shorter than the framed detectors
}

// DefaultMultiscaleParams returns the standard configuration
func DefaultMultiscaleParams() MultiscaleParams {
	return MultiscaleParams{
		LagsMs:        []float64{1, 2, 4, 8},
		FastMs:        1,
		SlowMs:        10,
		SmoothMs:      1,
		SigmaScale:    3.0,
		MinSpacingSec: 0.05,
	}
}

// MultiscaleDetector works directly in the sample domain: for each lag
// scale it differences the signal, takes a fast-minus-slow envelope
// (half-wave rectified), and sums the per-scale envelopes into one
// detection function. No frame hop, so positions are sample-exact.
type MultiscaleDetector struct {
	params MultiscaleParams
}

// NewMultiscaleDetector creates a detector with default parameters
func NewMultiscaleDetector() *MultiscaleDetector {
	return &MultiscaleDetector{params: DefaultMultiscaleParams()}
}

// NewMultiscaleDetectorWithParams creates a detector with custom parameters
func NewMultiscaleDetectorWithParams(params MultiscaleParams) *MultiscaleDetector {
	return &MultiscaleDetector{params: params}
}

// Detect returns rough onset positions in sample coordinates of the
// given slice.
func (d *MultiscaleDetector) Detect(samples []float64, sampleRate int, sensitivity float64) []int {
	if len(samples) < 3 {
		return nil
	}

	fastWin := msToSamples(d.params.FastMs, sampleRate)
	slowWin := msToSamples(d.params.SlowMs, sampleRate)

	detection := make([]float64, len(samples))

	for _, lagMs := range d.params.LagsMs {
		lag := msToSamples(lagMs, sampleRate)
		if lag >= len(samples) {
			continue
		}

		// Absolute lag difference per scale
		diff := make([]float64, len(samples))
		for n := lag; n < len(samples); n++ {
			diff[n] = math.Abs(samples[n] - samples[n-lag])
		}

		fast := stats.MovingAverage(diff, fastWin)
		slow := stats.MovingAverage(diff, slowWin)

		for n := range detection {
			env := fast[n] - slow[n]
			if env > 0 {
				detection[n] += env
			}
		}
	}

	detection = stats.SmoothZeroPhase(detection, msToSamples(d.params.SmoothMs, sampleRate))

	minSep := int(d.params.MinSpacingSec * float64(sampleRate))
	return pickPeaks(detection, sensitivity*d.params.SigmaScale, minSep)
}

func msToSamples(ms float64, sampleRate int) int {
	n := int(ms * float64(sampleRate) / 1000.0)
	if n < 1 {
		n = 1
	}
	return n
}
