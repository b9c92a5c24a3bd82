package stats

// stdFloor guards the z-score division for near-constant columns.
const stdFloor = 1e-6

// NormalizeColumns z-score normalizes each column of a row-major matrix
// independently: subtract the column mean, divide by the column standard
// deviation (floored at 1e-6). Required before Euclidean/cosine distances
// are meaningful across heterogeneous units (Hz vs ratios vs dB).
func NormalizeColumns(data [][]float64) [][]float64 {
	if len(data) == 0 {
		return nil
	}

	rows := len(data)
	cols := len(data[0])

	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}

	column := make([]float64, rows)
	for j := range cols {
		for i := range rows {
			column[i] = data[i][j]
		}

		mean, std := MeanStdDev(column)
		if std < stdFloor {
			std = stdFloor
		}

		for i := range rows {
			out[i][j] = (data[i][j] - mean) / std
		}
	}

	return out
}
