package train

import (
	"errors"
	"sort"
)

// ErrDegenerateLabels is returned when the held-out labels contain a single
// class, which makes ROC-AUC undefined.
var ErrDegenerateLabels = errors.New("train: test labels contain a single class, ROC-AUC undefined")

// Snapshot is the write-once evaluation record for one classifier and test
// split. The confusion matrix has rows = actual, columns = predicted,
// ordered [negative, positive]: [[TN, FP], [FN, TP]].
type Snapshot struct {
	Accuracy        float64   `json:"accuracy"`
	ROCAUC          float64   `json:"roc_auc"`
	Precision       float64   `json:"precision"`
	Recall          float64   `json:"recall"`
	F1              float64   `json:"f1"`
	ConfusionMatrix [2][2]int `json:"confusion_matrix"`
}

// Evaluate scores predicted probabilities against true binary labels at a
// 0.5 threshold and computes the full snapshot.
func Evaluate(yTrue []int, proba []float64) (Snapshot, error) {
	var s Snapshot

	auc, err := rocAUC(yTrue, proba)
	if err != nil {
		return s, err
	}
	s.ROCAUC = auc

	var tn, fp, fn, tp int
	for i, truth := range yTrue {
		pred := 0
		if proba[i] >= 0.5 {
			pred = 1
		}
		switch {
		case truth == 0 && pred == 0:
			tn++
		case truth == 0 && pred == 1:
			fp++
		case truth == 1 && pred == 0:
			fn++
		default:
			tp++
		}
	}
	s.ConfusionMatrix = [2][2]int{{tn, fp}, {fn, tp}}
	total := tn + fp + fn + tp
	if total > 0 {
		s.Accuracy = float64(tn+tp) / float64(total)
	}
	if tp+fp > 0 {
		s.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		s.Recall = float64(tp) / float64(tp+fn)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s, nil
}

// rocAUC computes the area under the ROC curve with the rank-sum
// formulation, assigning midranks to tied scores.
func rocAUC(yTrue []int, proba []float64) (float64, error) {
	pos, neg := 0, 0
	for _, t := range yTrue {
		if t == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, ErrDegenerateLabels
	}

	type scored struct {
		p float64
		y int
	}
	rows := make([]scored, len(yTrue))
	for i := range yTrue {
		rows[i] = scored{proba[i], yTrue[i]}
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].p < rows[b].p })

	// sum of positive-class ranks, ties share the average rank
	rankSum := 0.0
	i := 0
	for i < len(rows) {
		j := i
		for j < len(rows) && rows[j].p == rows[i].p {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			if rows[k].y == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}
	np, nn := float64(pos), float64(neg)
	return (rankSum - np*(np+1)/2) / (np * nn), nil
}
