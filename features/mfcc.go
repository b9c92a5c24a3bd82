package features

import "math"

// mfcc computes Mel-Frequency Cepstral Coefficients from one magnitude
// spectrum: a mel filter bank over the power spectrum, log compression
// with a floor to avoid log(0), then an orthonormal type-II DCT.
type mfcc struct {
	numCoefficients int
	numMelFilters   int
	filterBank      [][]float64
	dctMatrix       [][]float64
}

func newMFCC(numCoefficients, numMelFilters, fftSize, sampleRate int) *mfcc {
	m := &mfcc{
		numCoefficients: numCoefficients,
		numMelFilters:   numMelFilters,
		filterBank:      melFilterBank(numMelFilters, fftSize, sampleRate, 0.0, float64(sampleRate)/2.0),
	}
	m.createDCTMatrix()
	return m
}

// createDCTMatrix precomputes the orthonormal DCT-II basis
func (m *mfcc) createDCTMatrix() {
	m.dctMatrix = make([][]float64, m.numCoefficients)

	for k := range m.numCoefficients {
		m.dctMatrix[k] = make([]float64, m.numMelFilters)

		for n := range m.numMelFilters {
			m.dctMatrix[k][n] = math.Cos(math.Pi * float64(k) * (float64(n) + 0.5) / float64(m.numMelFilters))

			if k == 0 {
				m.dctMatrix[k][n] *= math.Sqrt(1.0 / float64(m.numMelFilters))
			} else {
				m.dctMatrix[k][n] *= math.Sqrt(2.0 / float64(m.numMelFilters))
			}
		}
	}
}

// compute turns a magnitude spectrum into cepstral coefficients
func (m *mfcc) compute(magnitudeSpectrum []float64) []float64 {
	coeffs := make([]float64, m.numCoefficients)
	if len(magnitudeSpectrum) == 0 {
		return coeffs
	}

	powerSpectrum := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		powerSpectrum[i] = mag * mag
	}

	melSpectrum := applyFilterBank(powerSpectrum, m.filterBank)

	logMel := make([]float64, len(melSpectrum))
	for i, mel := range melSpectrum {
		if mel > 1e-10 {
			logMel[i] = math.Log(mel)
		} else {
			logMel[i] = math.Log(1e-10)
		}
	}

	for k := range m.numCoefficients {
		sum := 0.0
		for n := 0; n < len(logMel) && n < len(m.dctMatrix[k]); n++ {
			sum += logMel[n] * m.dctMatrix[k][n]
		}
		coeffs[k] = sum
	}

	return coeffs
}
