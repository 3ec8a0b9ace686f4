package mlearn

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Classifier is the minimal surface training and inference depend on. The
// concrete learner behind it is replaceable.
type Classifier interface {
	Fit(x [][]float64, y []int) error
	Predict(x [][]float64) []int
}

// ProbabilityEstimator is implemented by classifiers that expose calibrated
// positive-class probabilities.
type ProbabilityEstimator interface {
	PredictProba(x [][]float64) []float64
}

// DecisionScorer is implemented by classifiers that expose a raw decision
// score, squashed to (0, 1) by callers that need probabilities.
type DecisionScorer interface {
	DecisionFunction(x [][]float64) []float64
}

// LogisticRegression is the baseline event classifier: standardized inputs,
// batch gradient descent, and inverse-frequency class weights to compensate
// for the rarity of anomaly events.
type LogisticRegression struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
	LearningRate float64   `json:"learning_rate"`
	Epochs       int       `json:"epochs"`
}

// NewLogisticRegression creates an untrained model. Non-positive arguments
// fall back to the defaults (400 epochs, learning rate 0.1).
func NewLogisticRegression(epochs int, learningRate float64) *LogisticRegression {
	if epochs <= 0 {
		epochs = 400
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	return &LogisticRegression{Epochs: epochs, LearningRate: learningRate}
}

// Fit trains on x and binary labels y. Class weights are n/(2*count(class)),
// so a balanced set weighs both classes at 1.
func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	if len(x) == 0 || len(x) != len(y) {
		return eris.Errorf("mlearn: fit requires matching non-empty inputs, got %d/%d", len(x), len(y))
	}
	nFeatures := len(x[0])

	m.Means, m.Stds = standardization(x)
	xs := make([][]float64, len(x))
	for i, row := range x {
		xs[i] = m.standardize(row)
	}

	var nPos, nNeg float64
	for _, label := range y {
		if label == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	n := float64(len(y))
	weightPos, weightNeg := 1.0, 1.0
	if nPos > 0 {
		weightPos = n / (2 * nPos)
	}
	if nNeg > 0 {
		weightNeg = n / (2 * nNeg)
	}

	m.Weights = make([]float64, nFeatures)
	m.Bias = 0

	for epoch := 0; epoch < m.Epochs; epoch++ {
		gradW := make([]float64, nFeatures)
		var gradB float64
		for i, row := range xs {
			p := sigmoid(dot(m.Weights, row) + m.Bias)
			w := weightNeg
			if y[i] == 1 {
				w = weightPos
			}
			diff := w * (p - float64(y[i]))
			for j, v := range row {
				gradW[j] += diff * v
			}
			gradB += diff
		}
		for j := range m.Weights {
			m.Weights[j] -= m.LearningRate * gradW[j] / n
		}
		m.Bias -= m.LearningRate * gradB / n
	}
	return nil
}

// Predict returns hard labels at the 0.5 threshold.
func (m *LogisticRegression) Predict(x [][]float64) []int {
	probs := m.PredictProba(x)
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

// PredictProba returns the positive-class probability per row.
func (m *LogisticRegression) PredictProba(x [][]float64) []float64 {
	scores := m.DecisionFunction(x)
	for i, s := range scores {
		scores[i] = sigmoid(s)
	}
	return scores
}

// DecisionFunction returns the raw linear score per row.
func (m *LogisticRegression) DecisionFunction(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = dot(m.Weights, m.standardize(row)) + m.Bias
	}
	return out
}

// Save writes the model as JSON, creating parent directories as needed.
func (m *LogisticRegression) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "mlearn: create model dir for %s", path)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "mlearn: marshal model")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "mlearn: write model %s", path)
}

// LoadModel reads a model previously written by Save.
func LoadModel(path string) (*LogisticRegression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mlearn: read model %s", path)
	}
	var m LogisticRegression
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "mlearn: parse model %s", path)
	}
	if len(m.Weights) == 0 || len(m.Weights) != len(m.Means) || len(m.Means) != len(m.Stds) {
		return nil, eris.Errorf("mlearn: model %s has inconsistent parameter shapes", path)
	}
	return &m, nil
}

func (m *LogisticRegression) standardize(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - m.Means[j]) / m.Stds[j]
	}
	return out
}

func standardization(x [][]float64) (means, stds []float64) {
	nFeatures := len(x[0])
	n := float64(len(x))
	means = make([]float64, nFeatures)
	stds = make([]float64, nFeatures)

	for _, row := range x {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1 // constant feature contributes nothing either way
		}
	}
	return means, stds
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
