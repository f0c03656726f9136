package model

import (
	"context"
	"slices"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/loader"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CrossValidate scores forests configured by h over k folds of X.
// Fold i is held out while a forest is fitted on the others; the returned
// slice holds the accuracy on each held-out fold.
func CrossValidate(ctx context.Context, h Hyperparameters, X mat.Matrix, y []int, k int) ([]float64, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	rows, err := rowsOf(X, y)
	if err != nil {
		return nil, err
	}
	folds, err := loader.KFoldSplit(len(rows), k, h.RandomState)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, k)
	for i, held := range folds {
		var fitIdx []int
		for j, f := range folds {
			if j != i {
				fitIdx = append(fitIdx, f...)
			}
		}
		slices.Sort(fitIdx)

		XFit, yFit := subset(rows, y, fitIdx)
		XHeld, yHeld := subset(rows, y, held)
		forest := h.Forest()
		if err := forest.FitContext(ctx, XFit, yFit); err != nil {
			return nil, errors.WithMessagef(err, "fold %d", i)
		}
		acc, err := Accuracy(yHeld, forest.Predict(XHeld))
		if err != nil {
			return nil, errors.WithMessagef(err, "fold %d", i)
		}
		scores[i] = acc
	}
	return scores, nil
}

func subset(rows [][]float64, y []int, idx []int) (*mat.Dense, []int) {
	X := mat.NewDense(len(idx), len(rows[0]), nil)
	ys := make([]int, len(idx))
	for i, r := range idx {
		X.SetRow(i, rows[r])
		ys[i] = y[r]
	}
	return X, ys
}
