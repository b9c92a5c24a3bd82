package onset

import (
	"github.com/sliceforge/sliceforge/dsp"
	"github.com/sliceforge/sliceforge/stats"
)

// SuperFluxParams contains parameters for the max-filtered spectral
// flux detector
type SuperFluxParams struct {
	WinSize       int     `json:"win_size"`        // FFT window (default 1024)
	HopSize       int     `json:"hop_size"`        // frame hop (default 256)
	MaxFilterSpan int     `json:"max_filter_span"` // frames of per-bin temporal max (default 3)
	SmoothSpan    int     `json:"smooth_span"`     // zero-phase smoothing window in frames
	BaselineSec   float64 `json:"baseline_sec"`    // moving-average baseline length
	SigmaScale    float64 `json:"sigma_scale"`     // sensitivity -> sigma multiplier (tunable default)
	MinSpacingSec float64 `json:"min_spacing_sec"` // refractory between onsets
}

// DefaultSuperFluxParams returns the standard configuration
func DefaultSuperFluxParams() SuperFluxParams {
	return SuperFluxParams{
		WinSize:       1024,
		HopSize:       256,
		MaxFilterSpan: 3,
		SmoothSpan:    3,
		BaselineSec:   0.35,
		SigmaScale:    2.5,
		MinSpacingSec: 0.25,
	}
}

// SuperFluxDetector computes a novelty curve as the sum of positive
// differences between each bin and the maximum of that bin over the
// previous few frames. The per-bin temporal max filter suppresses
// vibrato and tremolo false positives.
//
// Reference: Boeck, S., & Widmer, G. (2013). "Maximum filter vibrato
// suppression for onset detection"
type SuperFluxDetector struct {
	params SuperFluxParams
}

// NewSuperFluxDetector creates a detector with default parameters
func NewSuperFluxDetector() *SuperFluxDetector {
	return &SuperFluxDetector{params: DefaultSuperFluxParams()}
}

// NewSuperFluxDetectorWithParams creates a detector with custom parameters
func NewSuperFluxDetectorWithParams(params SuperFluxParams) *SuperFluxDetector {
	return &SuperFluxDetector{params: params}
}

// Detect returns rough onset positions in sample coordinates of the
// given slice.
func (d *SuperFluxDetector) Detect(samples []float64, sampleRate int, sensitivity float64) []int {
	frontEnd, err := dsp.NewFrontEnd(d.params.WinSize, d.params.HopSize)
	if err != nil {
		return nil
	}

	// Log-magnitude spectrogram compresses dynamic range so loud hits
	// don't mask quiet ones
	frames := frontEnd.Frames(samples, true)
	if len(frames) < 2 {
		return nil
	}

	novelty := d.noveltyCurve(frames)

	novelty = stats.SmoothZeroPhase(novelty, d.params.SmoothSpan)

	baselineFrames := int(d.params.BaselineSec * float64(sampleRate) / float64(d.params.HopSize))
	if baselineFrames < 3 {
		baselineFrames = 3
	}
	novelty = stats.SubtractBaseline(novelty, baselineFrames)

	minSepFrames := int(d.params.MinSpacingSec * float64(sampleRate) / float64(d.params.HopSize))
	peaks := pickPeaks(novelty, sensitivity*d.params.SigmaScale, minSepFrames)

	onsets := make([]int, len(peaks))
	for i, frame := range peaks {
		onsets[i] = frame * d.params.HopSize
	}

	return onsets
}

// noveltyCurve sums, per frame, the positive differences between each
// bin and the per-bin maximum over the preceding MaxFilterSpan frames.
func (d *SuperFluxDetector) noveltyCurve(frames [][]float64) []float64 {
	span := d.params.MaxFilterSpan
	if span < 1 {
		span = 1
	}

	novelty := make([]float64, len(frames))

	for t := 1; t < len(frames); t++ {
		sum := 0.0
		for b := range frames[t] {
			// Temporal max filter over the previous span frames
			prevMax := 0.0
			for p := t - span; p < t; p++ {
				if p >= 0 && frames[p][b] > prevMax {
					prevMax = frames[p][b]
				}
			}

			diff := frames[t][b] - prevMax
			if diff > 0 {
				sum += diff
			}
		}
		novelty[t] = sum
	}

	return novelty
}
