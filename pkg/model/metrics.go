package model

import (
	"sort"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
)

// Accuracy is the fraction of positions where yPred equals yTrue.
func Accuracy(yTrue, yPred []int) (float64, error) {
	if err := sameLength(yTrue, yPred); err != nil {
		return 0, err
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue)), nil
}

func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

// Classification metrics (binary, labels 0/1)
func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == 1 && yTrue[i] == 1 {
			tp++
		}
		if yPred[i] == 1 && yTrue[i] == 0 {
			fp++
		}
		if yPred[i] == 0 && yTrue[i] == 1 {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ConfusionMatrix counts (true, predicted) pairs. Rows and columns follow
// the sorted union of labels in both slices.
func ConfusionMatrix(yTrue, yPred []int) (labels []int, counts [][]int, err error) {
	if err := sameLength(yTrue, yPred); err != nil {
		return nil, nil, err
	}
	pos := map[int]int{}
	for _, v := range append(append([]int(nil), yTrue...), yPred...) {
		if _, ok := pos[v]; !ok {
			pos[v] = 0
			labels = append(labels, v)
		}
	}
	sort.Ints(labels)
	for i, l := range labels {
		pos[l] = i
	}
	counts = make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[pos[yTrue[i]]][pos[yPred[i]]]++
	}
	return labels, counts, nil
}

// Scores is the evaluation summary of a binary classifier.
type Scores struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluate computes Scores for predictions of a 0/1 target.
func Evaluate(yTrue, yPred []int) (Scores, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	p, r, f := PrecisionRecallF1(yTrue, yPred)
	return Scores{Accuracy: acc, Precision: p, Recall: r, F1: f, Support: len(yTrue)}, nil
}

func sameLength(yTrue, yPred []int) error {
	if len(yTrue) == 0 {
		return errtypes.DataFormat("no labels to score")
	}
	if len(yTrue) != len(yPred) {
		return errtypes.DataFormat("%d labels but %d predictions", len(yTrue), len(yPred))
	}
	return nil
}
