// Package features extracts per-recording descriptors used for
// velocity-layer and round-robin grouping: loudness, spectral shape,
// spectral flux, temporal shape and MFCCs.
package features

// NumMFCC is the number of cepstral coefficients kept per recording.
const NumMFCC = 13

// SampleFeatures is the fixed-shape descriptor record for one analyzed
// recording. All scalar fields are finite; producers clamp degenerate
// divisions (e.g. rolloff of an all-zero spectrum) to 0.
type SampleFeatures struct {
	RMS                 float64          `json:"rms"`
	Peak                float64          `json:"peak"`
	DynamicRangeDB      float64          `json:"dynamic_range_db"`
	SpectralCentroidHz  float64          `json:"spectral_centroid_hz"`
	SpectralRolloffHz   float64          `json:"spectral_rolloff_hz"`
	SpectralBandwidthHz float64          `json:"spectral_bandwidth_hz"`
	SpectralFlatness    float64          `json:"spectral_flatness"`
	SpectralFlux        float64          `json:"spectral_flux"`
	ZeroCrossingRate    float64          `json:"zero_crossing_rate"`
	AttackTimeSec       float64          `json:"attack_time_sec"`
	TemporalCentroid    float64          `json:"temporal_centroid"` // normalized 0..1
	MFCC                [NumMFCC]float64 `json:"mfcc"`
}

// NumScalarFeatures is the number of scalar descriptor columns.
const NumScalarFeatures = 11

// Row returns the canonical column layout: the 11 scalars followed by
// the 13 MFCCs. Column 0 is RMS (the loudness column used by stage-1
// grouping).
func (f *SampleFeatures) Row() []float64 {
	row := make([]float64, 0, NumScalarFeatures+NumMFCC)
	row = append(row,
		f.RMS,
		f.Peak,
		f.DynamicRangeDB,
		f.SpectralCentroidHz,
		f.SpectralRolloffHz,
		f.SpectralBandwidthHz,
		f.SpectralFlatness,
		f.SpectralFlux,
		f.ZeroCrossingRate,
		f.AttackTimeSec,
		f.TemporalCentroid,
	)
	row = append(row, f.MFCC[:]...)
	return row
}

// loudnessColumns marks which columns of Row describe loudness rather
// than timbre: RMS, Peak, DynamicRangeDB.
func loudnessColumn(col int) bool {
	return col < 3
}

// Vector returns the derived weighted concatenation used for clustering:
// loudness columns scaled by loudnessWeight, timbre columns by
// 1-loudnessWeight. It is recomputed on demand from the canonical
// fields, so reweighting never requires re-extraction.
func (f *SampleFeatures) Vector(loudnessWeight float64) []float64 {
	if loudnessWeight < 0 {
		loudnessWeight = 0
	} else if loudnessWeight > 1 {
		loudnessWeight = 1
	}

	row := f.Row()
	for i := range row {
		if loudnessColumn(i) {
			row[i] *= loudnessWeight
		} else {
			row[i] *= 1 - loudnessWeight
		}
	}
	return row
}

// Matrix builds the row-major feature matrix for a batch of recordings.
func Matrix(set []*SampleFeatures) [][]float64 {
	rows := make([][]float64, len(set))
	for i, f := range set {
		rows[i] = f.Row()
	}
	return rows
}

// TimbreColumns extracts the non-loudness columns of a (typically
// normalized) feature matrix, optionally scaling them by weight.
func TimbreColumns(matrix [][]float64, weight float64) [][]float64 {
	out := make([][]float64, len(matrix))
	for i, row := range matrix {
		timbre := make([]float64, 0, len(row)-3)
		for j, v := range row {
			if !loudnessColumn(j) {
				timbre = append(timbre, v*weight)
			}
		}
		out[i] = timbre
	}
	return out
}
