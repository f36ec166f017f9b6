package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sync"
)

// Forest is a bootstrap ensemble of CART trees. The predicted probability is
// the mean of per-tree leaf probabilities, which keeps scores calibrated in
// [0,1]. Immutable after Fit; safe for unlimited concurrent prediction.
type Forest struct {
	NTrees          int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int // 0 means sqrt(p), chosen at fit time
	Seed            int64
	Trees           []*Tree
}

// ForestOption configures a Forest before fitting.
type ForestOption func(*Forest)

func WithTrees(n int) ForestOption       { return func(f *Forest) { f.NTrees = n } }
func WithMaxDepth(d int) ForestOption    { return func(f *Forest) { f.MaxDepth = d } }
func WithSeed(seed int64) ForestOption   { return func(f *Forest) { f.Seed = seed } }
func WithMaxFeatures(k int) ForestOption { return func(f *Forest) { f.MaxFeatures = k } }

// NewForest returns a forest with ensemble defaults.
func NewForest(opts ...ForestOption) *Forest {
	f := &Forest{
		NTrees:          200,
		MinSamplesSplit: 2,
		Seed:            42,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit trains NTrees trees on bootstrap samples of X. Each tree gets its own
// seeded random source derived from the forest seed, so a given (seed, data)
// pair always produces the same ensemble regardless of goroutine scheduling.
func (f *Forest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("model: empty training matrix")
	}
	if len(y) != len(X) {
		return errors.New("model: X and y length mismatch")
	}
	n := len(X)
	p := len(X[0])

	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(p)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	f.Trees = make([]*Tree, f.NTrees)
	var wg sync.WaitGroup
	errCh := make(chan error, f.NTrees)

	for i := 0; i < f.NTrees; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			treeSeed := f.Seed + int64(idx)
			rnd := rand.New(rand.NewSource(treeSeed))
			sample := make([]int, n)
			for j := range sample {
				sample[j] = rnd.Intn(n)
			}
			tree := NewTree(f.MaxDepth, f.MinSamplesSplit, maxFeatures, treeSeed)
			if err := tree.Fit(X, y, sample); err != nil {
				errCh <- err
				return
			}
			f.Trees[idx] = tree
		}(i)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// PredictProba returns the positive-class probability for each row of X.
func (f *Forest) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(f.Trees) == 0 {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, x := range X {
		s := 0.0
		for _, t := range f.Trees {
			s += t.PredictProba(x)
		}
		out[i] = s / float64(len(f.Trees))
	}
	return out
}

// Predict returns 0/1 labels at a 0.5 probability threshold.
func (f *Forest) Predict(X [][]float64) []int {
	probs := f.PredictProba(X)
	out := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

// forestWire strips the marshaler methods so gob encodes plain fields
// instead of recursing back into MarshalBinary.
type forestWire Forest

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (f *Forest) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(forestWire(*f)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (f *Forest) UnmarshalBinary(data []byte) error {
	var w forestWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	*f = Forest(w)
	return nil
}
