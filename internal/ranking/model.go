package ranking

import (
	"fmt"
	"math"
)

// Estimator predicts the probability that each feature row is high impact.
type Estimator interface {
	PredictProba(rows [][]float64) ([]float64, error)
}

// Scaler standardizes features to zero mean and unit variance.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation. Constant
// columns get a std of 1 so they transform to 0.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: no rows")
	}
	width := len(rows[0])
	s := &Scaler{Mean: make([]float64, width), Std: make([]float64, width)}

	for _, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("fit scaler: ragged row of width %d, want %d", len(row), width)
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s, nil
}

// Transform returns standardized copies of rows.
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Mean) {
			return nil, fmt.Errorf("scale row %d: width %d, scaler expects %d", i, len(row), len(s.Mean))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Mean[j]) / s.Std[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// LogisticModel is an L2-regularized logistic regression classifier.
type LogisticModel struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Compile-time interface verification.
var _ Estimator = (*LogisticModel)(nil)

// PredictProba returns the positive-class probability of each row.
func (m *LogisticModel) PredictProba(rows [][]float64) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("predict row %d: width %d, model expects %d", i, len(row), len(m.Weights))
		}
		out[i] = sigmoid(m.Bias + dot(m.Weights, row))
	}
	return out, nil
}

// FitConfig controls gradient descent.
type FitConfig struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

// FitLogistic trains a logistic model by full-batch gradient descent.
func FitLogistic(rows [][]float64, labels []float64, cfg FitConfig) (*LogisticModel, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit logistic: no rows")
	}
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("fit logistic: %d rows but %d labels", len(rows), len(labels))
	}
	width := len(rows[0])
	m := &LogisticModel{Weights: make([]float64, width)}
	n := float64(len(rows))
	grad := make([]float64, width)

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		clear(grad)
		gradBias := 0.0
		for i, row := range rows {
			residual := sigmoid(m.Bias+dot(m.Weights, row)) - labels[i]
			for j, v := range row {
				grad[j] += residual * v
			}
			gradBias += residual
		}
		for j := range m.Weights {
			m.Weights[j] -= cfg.LearningRate * (grad[j]/n + cfg.L2*m.Weights[j])
		}
		m.Bias -= cfg.LearningRate * gradBias / n
	}

	for _, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("fit logistic: weights diverged")
		}
	}
	return m, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
