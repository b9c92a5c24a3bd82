package onset

import (
	"github.com/sliceforge/sliceforge/dsp"
	"github.com/sliceforge/sliceforge/stats"
)

// IRCAMParams contains parameters for the descriptor-delta detector
type IRCAMParams struct {
	WinSize       int     `json:"win_size"`        // FFT window (default 1024)
	HopSize       int     `json:"hop_size"`        // frame hop (default 256)
	SmoothSpan    int     `json:"smooth_span"`     // zero-phase smoothing per descriptor
	BaselineSec   float64 `json:"baseline_sec"`    // moving-average baseline length
	HighFreqHz    float64 `json:"high_freq_hz"`    // boundary for the HF energy ratio
	CentroidW     float64 `json:"centroid_w"`      // novelty weight for centroid deltas
	PeakCountW    float64 `json:"peak_count_w"`    // novelty weight for peak-count deltas
	HighFreqW     float64 `json:"high_freq_w"`     // novelty weight for HF-ratio deltas
	SigmaScale    float64 `json:"sigma_scale"`     // sensitivity -> sigma multiplier (tunable default)
	MinSpacingSec float64 `json:"min_spacing_sec"` // refractory between onsets
}

// DefaultIRCAMParams returns the standard configuration
func DefaultIRCAMParams() IRCAMParams {
	return IRCAMParams{
		WinSize:       1024,
		HopSize:       256,
		SmoothSpan:    5,
		BaselineSec:   0.35,
		HighFreqHz:    2000,
		CentroidW:     0.5,
		PeakCountW:    0.3,
		HighFreqW:     0.2,
		SigmaScale:    2.5,
		MinSpacingSec: 0.25,
	}
}

// IRCAMDetector tracks three per-frame spectral descriptors - centroid,
// local-peak count and high-frequency energy ratio - smooths each
// bidirectionally and sums their positive frame-to-frame deltas into a
// weighted novelty curve.
type IRCAMDetector struct {
	params IRCAMParams
}

// NewIRCAMDetector creates a detector with default parameters
func NewIRCAMDetector() *IRCAMDetector {
	return &IRCAMDetector{params: DefaultIRCAMParams()}
}

// NewIRCAMDetectorWithParams creates a detector with custom parameters
func NewIRCAMDetectorWithParams(params IRCAMParams) *IRCAMDetector {
	return &IRCAMDetector{params: params}
}

// Detect returns rough onset positions in sample coordinates of the
// given slice.
func (d *IRCAMDetector) Detect(samples []float64, sampleRate int, sensitivity float64) []int {
	frontEnd, err := dsp.NewFrontEnd(d.params.WinSize, d.params.HopSize)
	if err != nil {
		return nil
	}

	frames := frontEnd.Frames(samples, false)
	if len(frames) < 3 {
		return nil
	}

	centroid := make([]float64, len(frames))
	peakCount := make([]float64, len(frames))
	hfRatio := make([]float64, len(frames))

	for t, spectrum := range frames {
		centroid[t] = frameCentroid(spectrum, frontEnd, sampleRate)
		peakCount[t] = float64(frameLocalPeaks(spectrum))
		hfRatio[t] = frameHighFreqRatio(spectrum, frontEnd, sampleRate, d.params.HighFreqHz)
	}

	centroid = stats.SmoothZeroPhase(centroid, d.params.SmoothSpan)
	peakCount = stats.SmoothZeroPhase(peakCount, d.params.SmoothSpan)
	hfRatio = stats.SmoothZeroPhase(hfRatio, d.params.SmoothSpan)

	novelty := d.combineDeltas(centroid, peakCount, hfRatio)

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

// combineDeltas builds the weighted novelty curve from positive
// frame-to-frame deltas of the three descriptor tracks. Each delta
// stream is normalized by its own maximum so the weights stay
// comparable across descriptors with different units.
func (d *IRCAMDetector) combineDeltas(centroid, peakCount, hfRatio []float64) []float64 {
	n := len(centroid)
	dc := positiveDeltas(centroid)
	dp := positiveDeltas(peakCount)
	dh := positiveDeltas(hfRatio)

	normalizeByMax(dc)
	normalizeByMax(dp)
	normalizeByMax(dh)

	novelty := make([]float64, n)
	for t := 1; t < n; t++ {
		novelty[t] = d.params.CentroidW*dc[t] + d.params.PeakCountW*dp[t] + d.params.HighFreqW*dh[t]
	}
	return novelty
}

func positiveDeltas(track []float64) []float64 {
	deltas := make([]float64, len(track))
	for t := 1; t < len(track); t++ {
		diff := track[t] - track[t-1]
		if diff > 0 {
			deltas[t] = diff
		}
	}
	return deltas
}

func normalizeByMax(data []float64) {
	maxVal := 0.0
	for _, v := range data {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		return
	}
	for i := range data {
		data[i] /= maxVal
	}
}

// frameCentroid computes the magnitude-weighted mean frequency of one
// spectrum
func frameCentroid(spectrum []float64, fe *dsp.FrontEnd, sampleRate int) float64 {
	total := 0.0
	weighted := 0.0
	for i, mag := range spectrum {
		total += mag
		weighted += fe.BinFrequency(i, sampleRate) * mag
	}
	if total <= 0 {
		return 0
	}
	return weighted / total
}

// frameLocalPeaks counts bins that are local maxima above the frame's
// mean magnitude
func frameLocalPeaks(spectrum []float64) int {
	if len(spectrum) < 3 {
		return 0
	}

	mean := stats.Mean(spectrum)
	count := 0
	for i := 1; i < len(spectrum)-1; i++ {
		if spectrum[i] > spectrum[i-1] && spectrum[i] > spectrum[i+1] && spectrum[i] > mean {
			count++
		}
	}
	return count
}

// frameHighFreqRatio computes the share of spectral energy above the
// given boundary frequency
func frameHighFreqRatio(spectrum []float64, fe *dsp.FrontEnd, sampleRate int, boundaryHz float64) float64 {
	total := 0.0
	high := 0.0
	for i, mag := range spectrum {
		energy := mag * mag
		total += energy
		if fe.BinFrequency(i, sampleRate) > boundaryHz {
			high += energy
		}
	}
	if total <= 0 {
		return 0
	}
	return high / total
}
