package onset

import (
	"math"

	"github.com/sliceforge/sliceforge/stats"
)

// RefinerParams contains parameters for onset refinement
type RefinerParams struct {
	SearchBackMs     float64 `json:"search_back_ms"`    // slice extent before the rough index (default 25)
	SearchForwardMs  float64 `json:"search_forward_ms"` // slice extent after the rough index (default 10)
	EnergyWindowMs   float64 `json:"energy_window_ms"`  // short-time energy averaging window (default 1.5)
	BaselineFraction float64 `json:"baseline_fraction"` // leading share of the slice treated as pre-onset noise
	SigmaK           float64 `json:"sigma_k"`           // threshold above the noise baseline
	HoldMs           float64 `json:"hold_ms"`           // energy must stay above threshold this long
	SnapRadiusMs     float64 `json:"snap_radius_ms"`    // zero-crossing search radius
	OffsetMs         float64 `json:"offset_ms"`         // user pre-emption/delay applied last
}

// DefaultRefinerParams returns the standard refinement configuration
func DefaultRefinerParams() RefinerParams {
	return RefinerParams{
		SearchBackMs:     25,
		SearchForwardMs:  10,
		EnergyWindowMs:   1.5,
		BaselineFraction: 0.12,
		SigmaK:           2.5,
		HoldMs:           1.0,
		SnapRadiusMs:     5,
		OffsetMs:         0,
	}
}

// Refiner converts a rough onset index into an exact, low-click cut
// point: a short-time energy walk finds the earliest sustained
// exceedance over the pre-onset noise baseline, then the candidate is
// snapped to a rising zero crossing. When no qualifying crossing or
// exceedance exists the best available candidate is returned unchanged;
// refinement degrades gracefully, it never fails.
type Refiner struct {
	params     RefinerParams
	sampleRate int
}

// NewRefiner creates a refiner with default parameters
func NewRefiner(sampleRate int) *Refiner {
	return &Refiner{
		params:     DefaultRefinerParams(),
		sampleRate: sampleRate,
	}
}

// NewRefinerWithParams creates a refiner with custom parameters
func NewRefinerWithParams(sampleRate int, params RefinerParams) *Refiner {
	return &Refiner{
		params:     params,
		sampleRate: sampleRate,
	}
}

// RefineAll refines every rough position, preserving order
func (r *Refiner) RefineAll(samples []float64, rough []int) []int {
	refined := make([]int, len(rough))
	for i, pos := range rough {
		refined[i] = r.Refine(samples, pos)
	}
	return refined
}

// Refine returns the refined cut point for one rough onset index,
// always within [rough - searchBack, rough + searchForward] before the
// user offset, and clamped to [0, len(samples)).
func (r *Refiner) Refine(samples []float64, rough int) int {
	if len(samples) == 0 {
		return 0
	}

	back := msToSamples(r.params.SearchBackMs, r.sampleRate)
	forward := msToSamples(r.params.SearchForwardMs, r.sampleRate)

	sliceStart := rough - back
	if sliceStart < 0 {
		sliceStart = 0
	}
	sliceEnd := rough + forward
	if sliceEnd > len(samples) {
		sliceEnd = len(samples)
	}
	if sliceEnd-sliceStart < 3 {
		return clampIndex(rough, len(samples))
	}

	slice := samples[sliceStart:sliceEnd]
	energy := shortTimeEnergy(slice, msToSamples(r.params.EnergyWindowMs, r.sampleRate))

	threshold, ok := r.noiseThreshold(energy)
	if !ok {
		return r.applyOffset(clampIndex(rough, len(samples)), len(samples))
	}

	hold := msToSamples(r.params.HoldMs, r.sampleRate)
	candidate, found := firstSustainedExceedance(energy, threshold, hold)
	if !found {
		// No exceedance: keep the rough index (graceful degradation)
		return r.applyOffset(clampIndex(rough, len(samples)), len(samples))
	}

	snapped := r.snapToRisingCrossing(slice, energy, candidate, threshold)

	return r.applyOffset(clampIndex(sliceStart+snapped, len(samples)), len(samples))
}

// noiseThreshold derives baseline + k*stddev from the earliest part of
// the slice, assumed to be pre-onset silence or noise.
func (r *Refiner) noiseThreshold(energy []float64) (float64, bool) {
	baseLen := int(r.params.BaselineFraction * float64(len(energy)))
	if baseLen < 4 {
		baseLen = 4
	}
	if baseLen > len(energy) {
		return 0, false
	}

	mean, std := stats.MeanStdDev(energy[:baseLen])
	threshold := mean + r.params.SigmaK*std

	// A flat zero baseline still needs a positive threshold, otherwise
	// digital silence "exceeds" it everywhere
	if threshold <= 0 {
		threshold = 1e-12
	}

	return threshold, true
}

// firstSustainedExceedance walks forward to the earliest index whose
// energy exceeds the threshold and holds above it for the minimum
// duration, rejecting single-sample spikes.
func firstSustainedExceedance(energy []float64, threshold float64, hold int) (int, bool) {
	if hold < 1 {
		hold = 1
	}

	for i := 0; i < len(energy); i++ {
		if energy[i] <= threshold {
			continue
		}

		sustained := true
		end := i + hold
		if end > len(energy) {
			end = len(energy)
		}
		for j := i; j < end; j++ {
			if energy[j] <= threshold {
				sustained = false
				break
			}
		}

		if sustained {
			return i, true
		}
	}

	return 0, false
}

// snapToRisingCrossing moves the candidate to the nearest rising zero
// crossing (x[i] <= 0, x[i+1] > 0), preferring the most recent crossing
// at or before the candidate and falling back to the nearest one after.
// A crossing only qualifies if energy is above threshold shortly after
// it, so the cut never lands in trailing silence.
func (r *Refiner) snapToRisingCrossing(slice, energy []float64, candidate int, threshold float64) int {
	radius := msToSamples(r.params.SnapRadiusMs, r.sampleRate)
	checkAhead := msToSamples(r.params.HoldMs, r.sampleRate) * 2

	qualifies := func(i int) bool {
		if i < 0 || i+1 >= len(slice) {
			return false
		}
		if !(slice[i] <= 0 && slice[i+1] > 0) {
			return false
		}
		probe := i + checkAhead
		if probe >= len(energy) {
			probe = len(energy) - 1
		}
		return energy[probe] > threshold
	}

	// Most recent rising crossing at or before the candidate
	for i := candidate; i >= candidate-radius && i >= 0; i-- {
		if qualifies(i) {
			return i
		}
	}

	// Nearest rising crossing after the candidate
	for i := candidate + 1; i <= candidate+radius && i < len(slice); i++ {
		if qualifies(i) {
			return i
		}
	}

	return candidate
}

// applyOffset shifts by the user-configured millisecond offset and
// clamps into the signal
func (r *Refiner) applyOffset(pos, totalSamples int) int {
	if r.params.OffsetMs != 0 {
		pos += int(r.params.OffsetMs * float64(r.sampleRate) / 1000.0)
	}
	return clampIndex(pos, totalSamples)
}

// shortTimeEnergy computes a centered moving average of the squared
// signal
func shortTimeEnergy(slice []float64, window int) []float64 {
	squared := make([]float64, len(slice))
	for i, s := range slice {
		squared[i] = s * s
	}
	return stats.MovingAverage(squared, window)
}

func clampIndex(i, length int) int {
	if i < 0 {
		return 0
	}
	if i >= length {
		return int(math.Max(0, float64(length-1)))
	}
	return i
}
