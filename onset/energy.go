package onset

import "math"

// EnergyParams contains parameters for the energy detector
type EnergyParams struct {
	FrameSize     int     `json:"frame_size"`      // analysis window (default 1024)
	HopSize       int     `json:"hop_size"`        // hop between windows (default 256)
	SigmaScale    float64 `json:"sigma_scale"`     // sensitivity -> sigma multiplier (tunable default)
	MinSpacingSec float64 `json:"min_spacing_sec"` // refractory between onsets
}

// DefaultEnergyParams returns the standard configuration
func DefaultEnergyParams() EnergyParams {
	return EnergyParams{
		FrameSize:     1024,
		HopSize:       256,
		SigmaScale:    2.0,
		MinSpacingSec: 0.25,
	}
}

// EnergyDetector finds onsets as local peaks of a hop-windowed mean
// absolute amplitude series that exceed mean + k*stddev of the series.
type EnergyDetector struct {
	params EnergyParams
}

// NewEnergyDetector creates an energy detector with default parameters
func NewEnergyDetector() *EnergyDetector {
	return &EnergyDetector{params: DefaultEnergyParams()}
}

// NewEnergyDetectorWithParams creates an energy detector with custom parameters
func NewEnergyDetectorWithParams(params EnergyParams) *EnergyDetector {
	return &EnergyDetector{params: params}
}

// Detect returns rough onset positions in sample coordinates of the
// given slice. Silence yields an empty set.
func (d *EnergyDetector) Detect(samples []float64, sampleRate int, sensitivity float64) []int {
	if len(samples) < d.params.FrameSize {
		return nil
	}

	numFrames := (len(samples)-d.params.FrameSize)/d.params.HopSize + 1
	energy := make([]float64, numFrames)

	for i := range numFrames {
		start := i * d.params.HopSize
		sum := 0.0
		for _, s := range samples[start : start+d.params.FrameSize] {
			sum += math.Abs(s)
		}
		energy[i] = sum / float64(d.params.FrameSize)
	}

	minSepFrames := int(d.params.MinSpacingSec * float64(sampleRate) / float64(d.params.HopSize))
	peaks := pickPeaks(energy, sensitivity*d.params.SigmaScale, minSepFrames)

	onsets := make([]int, len(peaks))
	for i, frame := range peaks {
		onsets[i] = frame * d.params.HopSize
	}

	return onsets
}
