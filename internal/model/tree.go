// Package model implements the decision-tree ensemble used for risk
// classification. Trees are CART-style with gini impurity; the forest
// averages per-tree class probabilities. Labels are binary (0 = no disease,
// 1 = disease) and inputs are the standardized matrices produced by the
// transform package.
package model

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// Tree is a CART binary classifier. Exported fields participate in gob
// encoding; the tree is immutable once fit.
type Tree struct {
	MaxDepth        int   // 0 means no depth limit
	MinSamplesSplit int   // minimum samples to attempt a split
	MaxFeatures     int   // features sampled per split; 0 means all
	Seed            int64 // seed for feature subsampling
	Root            *Node
}

// Node is one tree node. Leaves carry the positive-class fraction observed
// during fit.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold goes left
	Left      *Node
	Right     *Node
	Samples   int
	PosFrac   float64
}

// NewTree returns a tree with the given split hyperparameters.
func NewTree(maxDepth, minSamplesSplit, maxFeatures int, seed int64) *Tree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	return &Tree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MaxFeatures:     maxFeatures,
		Seed:            seed,
	}
}

// Fit grows the tree on X (n x p) and binary labels y. Row indices may be
// supplied to fit on a bootstrap sample without copying the data; pass nil
// to use every row.
func (t *Tree) Fit(X [][]float64, y []int, rows []int) error {
	if len(X) == 0 {
		return errors.New("model: empty training matrix")
	}
	if len(y) != len(X) {
		return errors.New("model: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("model: ragged training matrix")
		}
	}
	if rows == nil {
		rows = make([]int, len(X))
		for i := range rows {
			rows[i] = i
		}
	}
	rnd := rand.New(rand.NewSource(t.Seed))
	t.Root = t.grow(X, y, rows, 0, p, rnd)
	return nil
}

func (t *Tree) grow(X [][]float64, y []int, rows []int, depth, p int, rnd *rand.Rand) *Node {
	pos := 0
	for _, i := range rows {
		pos += y[i]
	}
	node := &Node{
		Samples: len(rows),
		PosFrac: float64(pos) / float64(len(rows)),
	}

	pure := pos == 0 || pos == len(rows)
	if pure || len(rows) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		node.Leaf = true
		return node
	}

	feat, thr, left, right, ok := t.bestSplit(X, y, rows, p, rnd)
	if !ok {
		node.Leaf = true
		return node
	}

	node.Feature = feat
	node.Threshold = thr
	node.Left = t.grow(X, y, left, depth+1, p, rnd)
	node.Right = t.grow(X, y, right, depth+1, p, rnd)
	return node
}

// bestSplit scans midpoints between distinct sorted values of a sampled
// feature subset and keeps the split with the largest gini reduction.
func (t *Tree) bestSplit(X [][]float64, y []int, rows []int, p int, rnd *rand.Rand) (feat int, thr float64, left, right []int, ok bool) {
	feats := make([]int, p)
	for j := range feats {
		feats[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		rnd.Shuffle(p, func(a, b int) { feats[a], feats[b] = feats[b], feats[a] })
		feats = feats[:t.MaxFeatures]
	}

	parent := giniOf(y, rows)
	bestGain := 1e-12
	total := float64(len(rows))

	type cell struct {
		v   float64
		row int
	}
	for _, f := range feats {
		cells := make([]cell, len(rows))
		for k, i := range rows {
			cells[k] = cell{X[i][f], i}
		}
		sort.Slice(cells, func(a, b int) bool { return cells[a].v < cells[b].v })

		// prefix counts of positives support O(1) gini at each cut
		posLeft := 0
		totalPos := 0
		for _, c := range cells {
			totalPos += y[c.row]
		}
		for s := 1; s < len(cells); s++ {
			posLeft += y[cells[s-1].row]
			if cells[s].v == cells[s-1].v {
				continue
			}
			nl, nr := float64(s), float64(len(cells)-s)
			gl := giniCounts(posLeft, s)
			gr := giniCounts(totalPos-posLeft, len(cells)-s)
			gain := parent - (nl/total)*gl - (nr/total)*gr
			if gain > bestGain {
				bestGain = gain
				feat = f
				thr = (cells[s-1].v + cells[s].v) / 2
				ok = true
			}
		}
	}
	if !ok {
		return 0, 0, nil, nil, false
	}

	for _, i := range rows {
		if X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return 0, 0, nil, nil, false
	}
	return feat, thr, left, right, true
}

// PredictProba returns the positive-class probability for a single row.
// NaN feature values follow the branch with more fit-time samples.
func (t *Tree) PredictProba(x []float64) float64 {
	node := t.Root
	if node == nil {
		return 0.5
	}
	for !node.Leaf {
		v := x[node.Feature]
		if math.IsNaN(v) {
			if node.Left.Samples >= node.Right.Samples {
				node = node.Left
			} else {
				node = node.Right
			}
			continue
		}
		if v <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.PosFrac
}

func giniOf(y []int, rows []int) float64 {
	pos := 0
	for _, i := range rows {
		pos += y[i]
	}
	return giniCounts(pos, len(rows))
}

func giniCounts(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
