package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"gotest.tools/v3/assert"
)

func TestAccuracy(t *testing.T) {
	acc, err := model.Accuracy([]int{1, 0, 1, 1}, []int{1, 0, 0, 1})
	assert.NilError(t, err)
	assert.Equal(t, acc, 0.75)

	_, err = model.Accuracy(nil, nil)
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
	_, err = model.Accuracy([]int{1}, []int{1, 0})
	assert.Assert(t, errors.Is(err, errtypes.ErrDataFormat))
}

func TestEvaluate(t *testing.T) {
	s, err := model.Evaluate([]int{1, 1, 0, 0, 1}, []int{1, 0, 0, 1, 1})
	assert.NilError(t, err)
	assert.Equal(t, s.Accuracy, 0.6)
	assert.Equal(t, s.Support, 5)
	for _, v := range []float64{s.Precision, s.Recall, s.F1} {
		assert.Assert(t, math.Abs(v-2.0/3.0) < 1e-12, "got %v", v)
	}
}

func TestConfusionMatrix(t *testing.T) {
	labels, counts, err := model.ConfusionMatrix([]int{1, 1, 0, 0, 1}, []int{1, 0, 0, 1, 1})
	assert.NilError(t, err)
	assert.DeepEqual(t, labels, []int{0, 1})
	assert.DeepEqual(t, counts, [][]int{{1, 1}, {1, 2}})
}

func TestBinaryPredFromProba(t *testing.T) {
	assert.DeepEqual(t, model.BinaryPredFromProba([]float64{0.2, 0.5, 0.9}, 0.5), []int{0, 1, 1})
}
