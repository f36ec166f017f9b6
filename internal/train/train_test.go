package train

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStratifiedSplit_PreservesRatio(t *testing.T) {
	// 100 rows, 40 positive / 60 negative: a 20% test split should hold
	// 8 positives and 12 negatives, within one row of rounding.
	y := make([]int, 100)
	for i := 0; i < 40; i++ {
		y[i] = 1
	}

	trainIdx, testIdx, err := stratifiedSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, trainIdx, 80)
	assert.Len(t, testIdx, 20)

	pos, neg := 0, 0
	for _, i := range testIdx {
		if y[i] == 1 {
			pos++
		} else {
			neg++
		}
	}
	assert.InDelta(t, 8, pos, 1)
	assert.InDelta(t, 12, neg, 1)
}

func TestStratifiedSplit_NoOverlap(t *testing.T) {
	y := []int{0, 0, 0, 0, 1, 1, 1, 1, 0, 1}
	trainIdx, testIdx, err := stratifiedSplit(y, 0.2, 1)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, i := range trainIdx {
		seen[i] = true
	}
	for _, i := range testIdx {
		assert.False(t, seen[i], "index %d in both partitions", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(y))
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	y := make([]int, 50)
	for i := range y {
		y[i] = i % 2
	}
	_, a, err := stratifiedSplit(y, 0.2, 42)
	require.NoError(t, err)
	_, b, err := stratifiedSplit(y, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStratifiedSplit_InsufficientData(t *testing.T) {
	_, _, err := stratifiedSplit([]int{0, 0, 0, 1}, 0.2, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestEvaluate_KnownValues(t *testing.T) {
	yTrue := []int{0, 0, 1, 1}
	proba := []float64{0.1, 0.4, 0.35, 0.8}

	s, err := Evaluate(yTrue, proba)
	require.NoError(t, err)

	assert.Equal(t, [2][2]int{{2, 0}, {1, 1}}, s.ConfusionMatrix)
	assert.InDelta(t, 0.75, s.Accuracy, 1e-12)
	assert.InDelta(t, 1.0, s.Precision, 1e-12)
	assert.InDelta(t, 0.5, s.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.F1, 1e-12)
	assert.InDelta(t, 0.75, s.ROCAUC, 1e-12)
}

func TestEvaluate_AccuracyMatchesConfusionMatrix(t *testing.T) {
	yTrue := []int{0, 1, 1, 0, 1, 0, 0, 1, 1, 0}
	proba := []float64{0.2, 0.9, 0.4, 0.6, 0.7, 0.1, 0.55, 0.8, 0.3, 0.05}

	s, err := Evaluate(yTrue, proba)
	require.NoError(t, err)

	cm := s.ConfusionMatrix
	total := cm[0][0] + cm[0][1] + cm[1][0] + cm[1][1]
	assert.Equal(t, len(yTrue), total)
	assert.Equal(t, float64(cm[0][0]+cm[1][1])/float64(total), s.Accuracy)
}

func TestEvaluate_DegenerateLabels(t *testing.T) {
	_, err := Evaluate([]int{1, 1, 1}, []float64{0.9, 0.8, 0.7})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateLabels))
}

func TestROCAUC_PerfectSeparation(t *testing.T) {
	auc, err := rocAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, auc, 1e-12)
}

func TestROCAUC_TiedScoresUseMidranks(t *testing.T) {
	// One positive and one negative share a score: that pair contributes
	// half a win, so AUC = (3 + 0.5) / 4.
	auc, err := rocAUC([]int{0, 0, 1, 1}, []float64{0.1, 0.5, 0.5, 0.9})
	require.NoError(t, err)
	assert.InDelta(t, 0.875, auc, 1e-12)
}

func TestRun_EndToEnd(t *testing.T) {
	// Synthetic but separable: high max heart rate marks the negatives.
	records := make([]map[string]any, 100)
	labels := make([]int, 100)
	for i := range records {
		label := i % 2
		thalach := 180.0 - float64(i%10)
		if label == 1 {
			thalach = 110.0 + float64(i%10)
		}
		records[i] = map[string]any{
			"age":     40.0 + float64(i%30),
			"MaxHR":   thalach, // variant name exercises the resolver
			"chol":    200.0 + float64(i%50),
			"oldpeak": float64(label) * 2.0,
		}
		labels[i] = label
	}

	res, err := Run(records, labels, Config{Trees: 30, Seed: 42})
	require.NoError(t, err)
	require.NotNil(t, res.Forest)
	require.NotNil(t, res.Scaler)
	assert.Equal(t, 80, res.TrainRows)
	assert.Equal(t, 20, res.TestRows)
	assert.Greater(t, res.Metrics.Accuracy, 0.8)
	assert.False(t, math.IsNaN(res.Metrics.ROCAUC))

	cm := res.Metrics.ConfusionMatrix
	total := cm[0][0] + cm[0][1] + cm[1][0] + cm[1][1]
	assert.Equal(t, res.TestRows, total)
}

func TestRun_LengthMismatch(t *testing.T) {
	_, err := Run([]map[string]any{{"age": 1.0}}, []int{0, 1}, Config{})
	require.Error(t, err)
}
