package decode

import (
	"errors"
	"fmt"
)

// AnalysisRate is the fixed internal sample rate. All decoded audio is
// resampled to this rate before analysis.
const AnalysisRate = 44100

// ErrEmptyInput indicates a zero-length audio source.
var ErrEmptyInput = errors.New("decode: empty input")

// DecodeError wraps a per-source decode failure. A batch caller can treat
// it as fatal to that single recording without aborting the whole run.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Signal is an immutable mono float PCM buffer at a fixed sample rate.
// Downstream stages must not mutate Samples in place; each stage produces
// new derived arrays.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the signal length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// FromSamples wraps a raw sample buffer as a prepared Signal: downmixed
// buffers are resampled to AnalysisRate and DC-offset removed. Intended
// for callers that already hold PCM (including tests).
func FromSamples(samples []float64, sampleRate int) (Signal, error) {
	if len(samples) == 0 {
		return Signal{}, ErrEmptyInput
	}
	if sampleRate <= 0 {
		return Signal{}, &DecodeError{Source: "raw samples", Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	}

	out := samples
	if sampleRate != AnalysisRate {
		resampled, err := resampleTo(samples, sampleRate, AnalysisRate)
		if err != nil {
			return Signal{}, &DecodeError{Source: "raw samples", Err: err}
		}
		out = resampled
	} else {
		out = make([]float64, len(samples))
		copy(out, samples)
	}

	removeDCOffset(out)

	return Signal{Samples: out, SampleRate: AnalysisRate}, nil
}

// removeDCOffset subtracts the sample mean in place. Operates on buffers
// this package owns, never on caller-provided slices.
func removeDCOffset(samples []float64) {
	if len(samples) == 0 {
		return
	}

	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	for i := range samples {
		samples[i] -= mean
	}
}

// downmixMono averages interleaved channels into a single mono buffer.
func downmixMono(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)

	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}

	return mono
}
