package features

import (
	"math"

	"github.com/sliceforge/sliceforge/decode"
	"github.com/sliceforge/sliceforge/dsp"
	"github.com/sliceforge/sliceforge/logging"
)

// ExtractorParams contains parameters for feature extraction
type ExtractorParams struct {
	FFTSize         int     `json:"fft_size"`          // analysis FFT size (default 2048)
	HopSize         int     `json:"hop_size"`          // hop for flux frames (default 512)
	WindowMs        float64 `json:"window_ms"`         // fixed attack-window length (default 256)
	AdaptiveWindow  bool    `json:"adaptive_window"`   // window = 2x measured attack time instead
	EnergyFloor     float64 `json:"energy_floor"`      // absolute floor for attack anchoring
	NumMelFilters   int     `json:"num_mel_filters"`   // mel bands for MFCC (default 26)
	NumCoefficients int     `json:"num_coefficients"`  // cepstral coefficients kept (default 13)
	EnvelopeBlock   int     `json:"envelope_block"`    // block size for the coarse RMS envelope
	RolloffPercent  float64 `json:"rolloff_percent"`   // spectral rolloff threshold (default 0.85)
}

// DefaultExtractorParams returns the standard extraction configuration
func DefaultExtractorParams() ExtractorParams {
	return ExtractorParams{
		FFTSize:         2048,
		HopSize:         512,
		WindowMs:        256,
		AdaptiveWindow:  false,
		EnergyFloor:     1e-4,
		NumMelFilters:   26,
		NumCoefficients: NumMFCC,
		EnvelopeBlock:   1024,
		RolloffPercent:  0.85,
	}
}

// Extractor computes SampleFeatures for prepared signals. Extraction is
// deterministic: the same signal always yields the same record.
type Extractor struct {
	params     ExtractorParams
	sampleRate int
	frontEnd   *dsp.FrontEnd
	cepstrum   *mfcc
}

// NewExtractor creates an extractor with default parameters
func NewExtractor(sampleRate int) *Extractor {
	return NewExtractorWithParams(sampleRate, DefaultExtractorParams())
}

// NewExtractorWithParams creates an extractor with custom parameters
func NewExtractorWithParams(sampleRate int, params ExtractorParams) *Extractor {
	if params.FFTSize <= 0 {
		params.FFTSize = 2048
	}
	if params.HopSize <= 0 {
		params.HopSize = params.FFTSize / 4
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 26
	}
	if params.NumCoefficients <= 0 || params.NumCoefficients > NumMFCC {
		params.NumCoefficients = NumMFCC
	}
	if params.EnvelopeBlock <= 0 {
		params.EnvelopeBlock = 1024
	}
	if params.RolloffPercent <= 0 || params.RolloffPercent > 1 {
		params.RolloffPercent = 0.85
	}

	frontEnd, err := dsp.NewFrontEnd(params.FFTSize, params.HopSize)
	if err != nil {
		// Fall back to the minimum legal front end
		logging.Warn("invalid FFT configuration, using defaults", logging.Fields{
			"fft_size": params.FFTSize,
			"hop_size": params.HopSize,
		})
		params.FFTSize = 2048
		params.HopSize = 512
		frontEnd, _ = dsp.NewFrontEnd(params.FFTSize, params.HopSize)
	}

	return &Extractor{
		params:     params,
		sampleRate: sampleRate,
		frontEnd:   frontEnd,
		cepstrum:   newMFCC(params.NumCoefficients, params.NumMelFilters, params.FFTSize, sampleRate),
	}
}

// ExtractSignal extracts features from a prepared signal
func (e *Extractor) ExtractSignal(sig decode.Signal) (*SampleFeatures, error) {
	return e.Extract(sig.Samples)
}

// Extract computes the full descriptor record for one recording.
// Signals shorter than one analysis window yield zeroed descriptors;
// only truly empty input is an error.
func (e *Extractor) Extract(samples []float64) (*SampleFeatures, error) {
	if len(samples) == 0 {
		return nil, decode.ErrEmptyInput
	}

	f := &SampleFeatures{}

	if len(samples) < e.params.FFTSize {
		// Documented degenerate case: too short to analyze
		return f, nil
	}

	// Loudness over the full signal
	f.RMS, f.Peak = rmsPeak(samples)
	if f.RMS > 0 && f.Peak > 0 {
		f.DynamicRangeDB = finite(20.0 * math.Log10(f.Peak/f.RMS))
	}

	// Onset-anchored analysis window
	anchor := e.findAttackAnchor(samples)
	f.AttackTimeSec = e.measureAttackTime(samples, anchor)
	window := e.attackWindow(samples, anchor, f.AttackTimeSec)

	// Spectral shape from the mean magnitude spectrum of hopped frames
	// spanning the whole window; windows shorter than one frame fall
	// back to a single zero-padded FFT
	frames := e.frontEnd.Frames(window, false)
	spectrum := meanSpectrum(frames)
	if spectrum == nil {
		spectrum = e.frontEnd.Spectrum(window)
	}
	e.spectralShape(f, spectrum)

	// Frame-to-frame descriptors inside the window
	f.SpectralFlux = spectralFlux(frames)
	f.ZeroCrossingRate = zeroCrossingRate(window)

	// Temporal centroid over the whole signal
	f.TemporalCentroid = e.temporalCentroid(samples)

	// Timbre cepstrum
	coeffs := e.cepstrum.compute(spectrum)
	for i := 0; i < len(coeffs) && i < NumMFCC; i++ {
		f.MFCC[i] = finite(coeffs[i])
	}

	return f, nil
}

// findAttackAnchor locates the first short-time window whose energy
// exceeds the absolute floor.
func (e *Extractor) findAttackAnchor(samples []float64) int {
	const win = 256
	const hop = 128

	for start := 0; start+win <= len(samples); start += hop {
		sum := 0.0
		for _, s := range samples[start : start+win] {
			sum += math.Abs(s)
		}
		if sum/float64(win) > e.params.EnergyFloor {
			return start
		}
	}

	return 0
}

// measureAttackTime returns the time from the anchor to the RMS
// envelope peak.
func (e *Extractor) measureAttackTime(samples []float64, anchor int) float64 {
	const frameSize = 512
	const hopSize = 256

	envelope := rmsEnvelope(samples, frameSize, hopSize)
	if len(envelope) == 0 {
		return 0
	}

	anchorFrame := anchor / hopSize
	if anchorFrame >= len(envelope) {
		anchorFrame = len(envelope) - 1
	}

	peakFrame := anchorFrame
	peakVal := envelope[anchorFrame]
	for i := anchorFrame + 1; i < len(envelope); i++ {
		if envelope[i] > peakVal {
			peakVal = envelope[i]
			peakFrame = i
		}
	}

	return float64((peakFrame-anchorFrame)*hopSize) / float64(e.sampleRate)
}

// attackWindow slices the analysis window starting at the anchor:
// fixed-length by default, or 2x the measured attack time when adaptive.
func (e *Extractor) attackWindow(samples []float64, anchor int, attackTime float64) []float64 {
	lengthSec := e.params.WindowMs / 1000.0
	if e.params.AdaptiveWindow && attackTime > 0 {
		lengthSec = 2.0 * attackTime
		// Keep the adaptive window inside a sane range
		lengthSec = math.Max(lengthSec, 0.064)
		lengthSec = math.Min(lengthSec, 0.512)
	}

	length := int(lengthSec * float64(e.sampleRate))
	if length < e.params.FFTSize {
		length = e.params.FFTSize
	}

	end := anchor + length
	if end > len(samples) {
		end = len(samples)
	}
	if anchor >= end {
		anchor = 0
	}

	return samples[anchor:end]
}

// spectralShape fills centroid, bandwidth, rolloff and flatness from a
// magnitude spectrum. All-zero spectra yield zeros, not NaN.
func (e *Extractor) spectralShape(f *SampleFeatures, spectrum []float64) {
	if len(spectrum) == 0 {
		return
	}

	totalEnergy := 0.0
	weightedFreq := 0.0
	for i, mag := range spectrum {
		energy := mag * mag
		totalEnergy += energy
		weightedFreq += e.frontEnd.BinFrequency(i, e.sampleRate) * energy
	}

	if totalEnergy <= 0 {
		return
	}

	centroid := weightedFreq / totalEnergy
	f.SpectralCentroidHz = finite(centroid)

	// Energy-weighted second moment around the centroid
	spread := 0.0
	for i, mag := range spectrum {
		diff := e.frontEnd.BinFrequency(i, e.sampleRate) - centroid
		spread += diff * diff * mag * mag
	}
	f.SpectralBandwidthHz = finite(math.Sqrt(spread / totalEnergy))

	// Frequency below which RolloffPercent of the energy lies
	target := e.params.RolloffPercent * totalEnergy
	cumulative := 0.0
	for i, mag := range spectrum {
		cumulative += mag * mag
		if cumulative >= target {
			f.SpectralRolloffHz = e.frontEnd.BinFrequency(i, e.sampleRate)
			break
		}
	}

	// Spectral flatness: geometric mean over arithmetic mean, with an
	// epsilon floor to avoid log(0)
	const eps = 1e-10
	logSum := 0.0
	linSum := 0.0
	for _, mag := range spectrum {
		logSum += math.Log(mag + eps)
		linSum += mag + eps
	}
	n := float64(len(spectrum))
	f.SpectralFlatness = finite(math.Exp(logSum/n) / (linSum / n))
}

// meanSpectrum averages the magnitude frames bin by bin, so every hop
// of the analysis window contributes to the shape descriptors.
func meanSpectrum(frames [][]float64) []float64 {
	if len(frames) == 0 {
		return nil
	}

	mean := make([]float64, len(frames[0]))
	for _, frame := range frames {
		for b, mag := range frame {
			mean[b] += mag
		}
	}
	for b := range mean {
		mean[b] /= float64(len(frames))
	}
	return mean
}

// spectralFlux averages half-wave rectified frame-to-frame magnitude
// differences over the hopped frames.
func spectralFlux(frames [][]float64) float64 {
	if len(frames) < 2 {
		return 0
	}

	total := 0.0
	for t := 1; t < len(frames); t++ {
		for b := range frames[t] {
			diff := frames[t][b] - frames[t-1][b]
			if diff > 0 {
				total += diff
			}
		}
	}

	return finite(total / float64(len(frames)-1))
}

// temporalCentroid computes the energy-weighted mean block index of a
// coarse RMS envelope over the entire signal, normalized to [0, 1].
// Front-loaded energy gives values near 0, sustained energy near 0.5+.
func (e *Extractor) temporalCentroid(samples []float64) float64 {
	block := e.params.EnvelopeBlock
	numBlocks := len(samples) / block
	if numBlocks < 2 {
		return 0
	}

	totalEnergy := 0.0
	weighted := 0.0
	for i := range numBlocks {
		sum := 0.0
		for _, s := range samples[i*block : (i+1)*block] {
			sum += s * s
		}
		rms := math.Sqrt(sum / float64(block))
		energy := rms * rms
		totalEnergy += energy
		weighted += float64(i) * energy
	}

	if totalEnergy <= 0 {
		return 0
	}

	tc := weighted / totalEnergy / float64(numBlocks-1)
	return math.Min(math.Max(finite(tc), 0), 1)
}

// rmsPeak computes full-signal RMS and absolute peak
func rmsPeak(samples []float64) (rms, peak float64) {
	sum := 0.0
	for _, s := range samples {
		sum += s * s
		abs := math.Abs(s)
		if abs > peak {
			peak = abs
		}
	}
	rms = math.Sqrt(sum / float64(len(samples)))
	return rms, peak
}

// rmsEnvelope computes a framed RMS envelope
func rmsEnvelope(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) < frameSize {
		return nil
	}

	numFrames := (len(samples)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		start := i * hopSize
		sum := 0.0
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		envelope[i] = math.Sqrt(sum / float64(frameSize))
	}

	return envelope
}

// zeroCrossingRate counts sign changes per sample
func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(samples)-1)
}

// finite clamps NaN/Inf to 0, keeping the record invariant that every
// scalar field is finite.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
