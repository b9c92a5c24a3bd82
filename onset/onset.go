// Package onset locates transient events in a recording. Four
// interchangeable detection strategies produce rough onset positions;
// a two-stage refiner snaps each one to an exact, click-free cut point.
package onset

import (
	"fmt"
	"sort"

	"github.com/sliceforge/sliceforge/decode"
	"github.com/sliceforge/sliceforge/logging"
	"github.com/sliceforge/sliceforge/stats"
)

// Algorithm selects a detection strategy
type Algorithm int

const (
	// Energy thresholds a hop-windowed mean-amplitude series
	Energy Algorithm = iota
	// SuperFlux thresholds a max-filtered log-spectral flux novelty curve
	SuperFlux
	// IRCAM combines centroid, peak-count and high-frequency deltas
	IRCAM
	// Multiscale differences the raw signal at several lag scales
	Multiscale
)

func (a Algorithm) String() string {
	switch a {
	case Energy:
		return "energy"
	case SuperFlux:
		return "superflux"
	case IRCAM:
		return "ircam"
	case Multiscale:
		return "multiscale"
	default:
		return "unknown"
	}
}

// ParseAlgorithm resolves an algorithm name as used in configuration
// files and on the command line
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "energy":
		return Energy, nil
	case "superflux", "":
		return SuperFlux, nil
	case "ircam":
		return IRCAM, nil
	case "multiscale":
		return Multiscale, nil
	default:
		return SuperFlux, fmt.Errorf("unknown onset algorithm %q", name)
	}
}

// Options is the host-facing detection configuration
type Options struct {
	Algorithm   Algorithm `json:"algorithm"`
	Sensitivity float64   `json:"sensitivity"` // unitless slider, mapped to a sigma multiplier per algorithm

	// Optional selection range; End == 0 means the full signal.
	// Reported positions are always in absolute sample coordinates of
	// the original signal.
	SelectionStart int `json:"selection_start"`
	SelectionEnd   int `json:"selection_end"`

	// MinSpacingSec overrides the per-algorithm inter-onset spacing
	// when > 0
	MinSpacingSec float64 `json:"min_spacing_sec"`

	// OffsetMs shifts every refined cut point (negative = earlier)
	OffsetMs float64 `json:"offset_ms"`
}

// DefaultOptions returns a mid-sensitivity SuperFlux configuration
func DefaultOptions() Options {
	return Options{
		Algorithm:   SuperFlux,
		Sensitivity: 1.0,
	}
}

// Detect runs the selected strategy and returns rough onset positions
// in absolute sample coordinates, sorted ascending. Silence or
// featureless input yields an empty set, never an error.
func Detect(sig decode.Signal, opts Options) []int {
	samples, offset := selectRange(sig.Samples, opts)
	if len(samples) == 0 {
		return nil
	}

	sensitivity := opts.Sensitivity
	if sensitivity <= 0 {
		sensitivity = 1.0
	}

	var rough []int
	switch opts.Algorithm {
	case Energy:
		d := NewEnergyDetector()
		if opts.MinSpacingSec > 0 {
			d.params.MinSpacingSec = opts.MinSpacingSec
		}
		rough = d.Detect(samples, sig.SampleRate, sensitivity)
	case SuperFlux:
		d := NewSuperFluxDetector()
		if opts.MinSpacingSec > 0 {
			d.params.MinSpacingSec = opts.MinSpacingSec
		}
		rough = d.Detect(samples, sig.SampleRate, sensitivity)
	case IRCAM:
		d := NewIRCAMDetector()
		if opts.MinSpacingSec > 0 {
			d.params.MinSpacingSec = opts.MinSpacingSec
		}
		rough = d.Detect(samples, sig.SampleRate, sensitivity)
	case Multiscale:
		d := NewMultiscaleDetector()
		if opts.MinSpacingSec > 0 {
			d.params.MinSpacingSec = opts.MinSpacingSec
		}
		rough = d.Detect(samples, sig.SampleRate, sensitivity)
	default:
		logging.Warn("unknown onset algorithm, falling back to energy", logging.Fields{
			"algorithm": int(opts.Algorithm),
		})
		rough = NewEnergyDetector().Detect(samples, sig.SampleRate, sensitivity)
	}

	// Restore the selection-range offset
	for i := range rough {
		rough[i] += offset
	}

	logging.Debug("onset detection complete", logging.Fields{
		"algorithm": opts.Algorithm.String(),
		"onsets":    len(rough),
	})

	return rough
}

// DetectMarkers detects, refines and wraps onsets as unassigned markers
func DetectMarkers(sig decode.Signal, opts Options) []Marker {
	rough := Detect(sig, opts)
	if len(rough) == 0 {
		return nil
	}

	refiner := NewRefiner(sig.SampleRate)
	refiner.params.OffsetMs = opts.OffsetMs

	refined := refiner.RefineAll(sig.Samples, rough)
	return MarkersFromPositions(refined)
}

// selectRange clamps the optional selection window
func selectRange(samples []float64, opts Options) ([]float64, int) {
	start := opts.SelectionStart
	end := opts.SelectionEnd

	if end <= 0 || end > len(samples) {
		end = len(samples)
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return nil, 0
	}

	return samples[start:end], start
}

// pickPeaks selects local maxima of a novelty curve that exceed
// mean + sigma*stddev of the whole curve, suppressing candidates closer
// than minSeparation to the last accepted peak.
func pickPeaks(novelty []float64, sigma float64, minSeparation int) []int {
	if len(novelty) < 3 {
		return nil
	}

	mean, std := stats.MeanStdDev(novelty)
	threshold := mean + sigma*std
	if threshold <= 0 {
		// Flat or silent curve: nothing qualifies
		return nil
	}

	if minSeparation < 1 {
		minSeparation = 1
	}

	var peaks []int
	last := -minSeparation

	for i := 1; i < len(novelty)-1; i++ {
		if novelty[i] > novelty[i-1] &&
			novelty[i] >= novelty[i+1] &&
			novelty[i] > threshold &&
			i-last >= minSeparation {
			peaks = append(peaks, i)
			last = i
		}
	}

	return peaks
}

// Marker is a detected or user-placed region boundary. Group -1 means
// an unassigned transient; CustomEnd -1 means the region runs to the
// next marker (or the end of the signal).
type Marker struct {
	SamplePosition int `json:"sample_position"`
	CustomEnd      int `json:"custom_end"`
	Group          int `json:"group"`
}

// NewMarker creates an unassigned marker at the given position
func NewMarker(position int) Marker {
	return Marker{SamplePosition: position, CustomEnd: -1, Group: -1}
}

// MarkersFromPositions wraps sorted onset positions as markers
func MarkersFromPositions(positions []int) []Marker {
	markers := make([]Marker, len(positions))
	for i, pos := range positions {
		markers[i] = NewMarker(pos)
	}
	return markers
}

// SortedByPosition returns a copy of the markers sorted by sample
// position. Storage order is not guaranteed sorted; consumers must sort
// before deriving region boundaries.
func SortedByPosition(markers []Marker) []Marker {
	out := make([]Marker, len(markers))
	copy(out, markers)
	sort.Slice(out, func(i, j int) bool {
		return out[i].SamplePosition < out[j].SamplePosition
	})
	return out
}

// Region is a half-open sample range [Start, End)
type Region struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the region length in samples
func (r Region) Len() int {
	return r.End - r.Start
}

// Regions derives one region per marker: the end is the marker's custom
// end if set, otherwise the next marker's position in sorted order,
// otherwise the total sample count.
func Regions(markers []Marker, totalSamples int) []Region {
	if len(markers) == 0 {
		return nil
	}

	sorted := SortedByPosition(markers)
	regions := make([]Region, len(sorted))

	for i, m := range sorted {
		end := totalSamples
		if i+1 < len(sorted) {
			end = sorted[i+1].SamplePosition
		}
		if m.CustomEnd >= 0 && m.CustomEnd <= end {
			end = m.CustomEnd
		}
		if end < m.SamplePosition {
			end = m.SamplePosition
		}
		regions[i] = Region{Start: m.SamplePosition, End: end}
	}

	return regions
}

// RegionStats summarizes region lengths for outlier screening
type RegionStats struct {
	MedianLen  float64 `json:"median_len"`
	IQR        float64 `json:"iqr"`
	UpperBound float64 `json:"upper_bound"` // Q3 + 1.5*IQR
}

// ComputeRegionStats returns median/IQR statistics of region lengths.
// The caller decides what to do with regions above UpperBound.
func ComputeRegionStats(regions []Region) RegionStats {
	if len(regions) == 0 {
		return RegionStats{}
	}

	lengths := make([]float64, len(regions))
	for i, r := range regions {
		lengths[i] = float64(r.Len())
	}

	q1 := stats.Percentile(lengths, 0.25)
	q3 := stats.Percentile(lengths, 0.75)
	iqr := q3 - q1

	return RegionStats{
		MedianLen:  stats.Median(lengths),
		IQR:        iqr,
		UpperBound: q3 + 1.5*iqr,
	}
}

// OutlierRegions returns the indices (into the sorted region list) of
// abnormally long regions.
func OutlierRegions(regions []Region) []int {
	rs := ComputeRegionStats(regions)
	if rs.IQR <= 0 {
		return nil
	}

	var outliers []int
	for i, r := range regions {
		if float64(r.Len()) > rs.UpperBound {
			outliers = append(outliers, i)
		}
	}
	return outliers
}
