package mlearn

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableData builds a 1D-separable problem: the first feature decides the
// label, the rest are constant.
func separableData(n int) (x [][]float64, y []int) {
	for i := 0; i < n; i++ {
		a := float64(i%7) - 3 // -3..3
		row := make([]float64, len(FeatureColumns))
		row[0] = a
		row[1] = 0.5
		x = append(x, row)
		if a > 1 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return x, y
}

func TestLogisticRegression_LearnsSeparableData(t *testing.T) {
	x, y := separableData(140)

	clf := NewLogisticRegression(400, 0.1)
	require.NoError(t, clf.Fit(x, y))

	preds := clf.Predict(x)
	correct := 0
	for i, p := range preds {
		if p == y[i] {
			correct++
		}
	}
	assert.GreaterOrEqual(t, float64(correct)/float64(len(y)), 0.95)
}

func TestLogisticRegression_ProbabilitiesInUnitInterval(t *testing.T) {
	x, y := separableData(70)
	clf := NewLogisticRegression(100, 0.1)
	require.NoError(t, clf.Fit(x, y))

	for _, p := range clf.PredictProba(x) {
		assert.Greater(t, p, 0.0)
		assert.Less(t, p, 1.0)
	}
}

func TestLogisticRegression_FitRejectsEmptyInput(t *testing.T) {
	clf := NewLogisticRegression(10, 0.1)
	assert.Error(t, clf.Fit(nil, nil))
	assert.Error(t, clf.Fit([][]float64{{1}}, []int{0, 1}))
}

func TestLogisticRegression_SaveLoadRoundTrip(t *testing.T) {
	x, y := separableData(70)
	clf := NewLogisticRegression(100, 0.1)
	require.NoError(t, clf.Fit(x, y))

	path := filepath.Join(t.TempDir(), "models", "clf.json")
	require.NoError(t, clf.Save(path))

	loaded, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, clf.Predict(x), loaded.Predict(x))
	assert.InDeltaSlice(t, clf.PredictProba(x), loaded.PredictProba(x), 1e-12)
}

func TestLoadModel_MissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
