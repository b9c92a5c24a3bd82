package decode

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// resampleTo converts a mono buffer from srcRate to dstRate using the
// pure-Go soxr-style resampler (no CGO dependency).
func resampleTo(samples []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate == dstRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	config := &resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}

	rs, err := resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}

	out, err := rs.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	// The resampler buffers a filter-length tail internally. Push silence
	// through until the expected output length is reached.
	expected := int(math.Round(float64(len(samples)) * float64(dstRate) / float64(srcRate)))
	flush := make([]float64, 256)
	for range 64 {
		if len(out) >= expected {
			break
		}
		tail, err := rs.Process(flush)
		if err != nil {
			return nil, fmt.Errorf("resample flush: %w", err)
		}
		if len(tail) == 0 {
			break
		}
		out = append(out, tail...)
	}

	if len(out) > expected {
		out = out[:expected]
	}

	return out, nil
}
