// Package dsp provides the shared spectral front end: Hann-windowed FFT
// magnitude spectra, single-frame or hopped, with optional log1p
// compression for flux-based novelty curves.
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FrontEnd computes magnitude spectra over Hann-windowed frames.
type FrontEnd struct {
	winSize int
	hopSize int
	window  *Hann
}

// NewFrontEnd creates a spectral front end. winSize must be a power of
// two >= 1024; hopSize is typically winSize/4 to winSize/8.
func NewFrontEnd(winSize, hopSize int) (*FrontEnd, error) {
	if winSize < 1024 || winSize&(winSize-1) != 0 {
		return nil, fmt.Errorf("dsp: window size must be a power of two >= 1024, got %d", winSize)
	}
	if hopSize <= 0 || hopSize > winSize {
		return nil, fmt.Errorf("dsp: hop size must be in (0, %d], got %d", winSize, hopSize)
	}

	return &FrontEnd{
		winSize: winSize,
		hopSize: hopSize,
		window:  NewHann(winSize),
	}, nil
}

// WinSize returns the analysis window length in samples.
func (fe *FrontEnd) WinSize() int { return fe.winSize }

// HopSize returns the hop between consecutive frames in samples.
func (fe *FrontEnd) HopSize() int { return fe.hopSize }

// Spectrum computes the Hann-windowed FFT magnitude of one frame,
// returning bins 0..winSize/2. Frames shorter than winSize are
// zero-padded; longer frames are truncated.
func (fe *FrontEnd) Spectrum(frame []float64) []float64 {
	buf := make([]float64, fe.winSize)
	copy(buf, frame)
	fe.window.ApplyInPlace(buf)

	return Magnitude(buf)
}

// Frames computes one magnitude vector per hop over the sample range.
// With logCompress, each bin is log(mag+1) to compress dynamic range and
// keep loud transients from dominating flux measures. A signal shorter
// than one window yields no frames.
func (fe *FrontEnd) Frames(signal []float64, logCompress bool) [][]float64 {
	if len(signal) < fe.winSize {
		return nil
	}

	numFrames := (len(signal)-fe.winSize)/fe.hopSize + 1
	frames := make([][]float64, numFrames)

	buf := make([]float64, fe.winSize)
	for i := range numFrames {
		start := i * fe.hopSize
		copy(buf, signal[start:start+fe.winSize])
		fe.window.ApplyInPlace(buf)

		mag := Magnitude(buf)
		if logCompress {
			for j, m := range mag {
				mag[j] = math.Log1p(m)
			}
		}
		frames[i] = mag
	}

	return frames
}

// BinFrequency returns the center frequency of bin i for the given
// sample rate.
func (fe *FrontEnd) BinFrequency(bin, sampleRate int) float64 {
	return float64(bin) * float64(sampleRate) / float64(fe.winSize)
}

// Magnitude computes the real-FFT magnitude spectrum of a frame,
// returning bins 0..len(frame)/2.
func Magnitude(frame []float64) []float64 {
	if len(frame) == 0 {
		return nil
	}

	spectrum := fft.FFTReal(frame)
	bins := len(frame)/2 + 1

	mag := make([]float64, bins)
	for i := range bins {
		mag[i] = cmplx.Abs(spectrum[i])
	}

	return mag
}
