package demand

import "math"

// StandardScaler rescales features to zero mean and unit variance. Fitted
// once on the training table; the same parameters are reused for every
// prediction. Refitting on a prediction row is incorrect and not supported.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// Fit computes per-column mean and standard deviation. Zero-variance
// columns get scale 1 so transformed values stay finite.
func (s *StandardScaler) Fit(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	cols := len(rows[0])
	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)

	n := float64(len(rows))
	for _, row := range rows {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
}

// Transform standardizes one row using the fitted parameters.
func (s *StandardScaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll standardizes a full table.
func (s *StandardScaler) TransformAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = s.Transform(row)
	}
	return out
}
