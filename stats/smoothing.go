package stats

// MovingAverage computes a centered moving average with the given
// window size. Edges shrink the window instead of zero-padding.
func MovingAverage(data []float64, windowSize int) []float64 {
	if len(data) == 0 || windowSize <= 1 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}

	if windowSize > len(data) {
		windowSize = len(data)
	}

	smoothed := make([]float64, len(data))
	halfWindow := windowSize / 2

	for i := range data {
		sum := 0.0
		count := 0
		for j := i - halfWindow; j <= i+halfWindow; j++ {
			if j >= 0 && j < len(data) {
				sum += data[j]
				count++
			}
		}
		smoothed[i] = sum / float64(count)
	}

	return smoothed
}

// SmoothZeroPhase applies the moving average forward and then backward,
// cancelling the phase lag a single pass introduces. Novelty curves are
// smoothed this way so detected peaks stay aligned with the transient.
func SmoothZeroPhase(data []float64, windowSize int) []float64 {
	forward := MovingAverage(data, windowSize)

	// Reverse, smooth again, reverse back
	n := len(forward)
	reversed := make([]float64, n)
	for i := range n {
		reversed[i] = forward[n-1-i]
	}

	backward := MovingAverage(reversed, windowSize)

	out := make([]float64, n)
	for i := range n {
		out[i] = backward[n-1-i]
	}

	return out
}

// HalfWaveRectify zeroes negative values, keeping only rises.
func HalfWaveRectify(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

// SubtractBaseline subtracts a local moving-average baseline from the
// curve and half-wave rectifies the result.
func SubtractBaseline(data []float64, windowSize int) []float64 {
	baseline := MovingAverage(data, windowSize)

	diff := make([]float64, len(data))
	for i, v := range data {
		diff[i] = v - baseline[i]
	}

	return HalfWaveRectify(diff)
}
