package train

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrInsufficientData is returned when a class has too few members for a
// stratified split.
var ErrInsufficientData = errors.New("train: insufficient data for stratified split")

// stratifiedSplit partitions row indices into train and test sets while
// preserving each class's proportion (within one row of rounding). Every
// class keeps at least one row on each side. The split is deterministic for
// a given seed.
func stratifiedSplit(y []int, testFraction float64, seed int64) (trainIdx, testIdx []int, err error) {
	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	for label, idx := range byClass {
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("%w: class %d has %d members, need at least 2", ErrInsufficientData, label, len(idx))
		}
	}

	rnd := rand.New(rand.NewSource(seed))
	// iterate classes in label order so the shuffle sequence is stable
	labels := sortedKeys(byClass)
	for _, label := range labels {
		idx := append([]int(nil), byClass[label]...)
		rnd.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

		nTest := int(math.Round(float64(len(idx)) * testFraction))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > len(idx)-1 {
			nTest = len(idx) - 1
		}
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	return trainIdx, testIdx, nil
}

func sortedKeys(m map[int][]int) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func pick(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for k, i := range idx {
		outX[k] = X[i]
		outY[k] = y[i]
	}
	return outX, outY
}
