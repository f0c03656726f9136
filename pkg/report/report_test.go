package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/report"
	"gonum.org/v1/gonum/mat"
	"gotest.tools/v3/assert"
)

func TestFeatureImportancePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report", report.ImportanceFileName)
	err := report.FeatureImportancePlot([]string{"Pclass", "Sex", "Age"}, []float64{0.2, 0.5, 0.3}, path)
	assert.NilError(t, err)

	b, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Assert(t, bytes.HasPrefix(b, []byte("\x89PNG")))

	err = report.FeatureImportancePlot([]string{"Pclass"}, []float64{0.2, 0.8}, path)
	assert.Assert(t, errors.Is(err, errtypes.ErrInvalidParameter))
}

func TestMetrics(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 2, 0, 8, 0, 9, 0})
	y := []int{0, 0, 1, 1}
	rf := model.NewRandomForest(model.WithNEstimators(5), model.WithBootstrap(false))
	assert.NilError(t, rf.Fit(X, y))

	yPred := rf.Predict(X)
	scores, err := model.Evaluate(y, yPred)
	assert.NilError(t, err)
	a := model.NewArtifact(rf, nil, model.Meta{Features: []string{"x", "zero"}, Scores: scores}, time.Now())

	m, err := report.NewMetrics(a, y, yPred)
	assert.NilError(t, err)
	assert.DeepEqual(t, m.ConfusionMatrix, [][]int{{2, 0}, {0, 2}})
	assert.DeepEqual(t, m.FeatureImportances, map[string]float64{"x": 1, "zero": 0})

	path := filepath.Join(t.TempDir(), report.MetricsFileName)
	assert.NilError(t, m.Write(path))

	b, err := os.ReadFile(path)
	assert.NilError(t, err)
	var decoded map[string]any
	assert.NilError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, decoded["model_id"], a.Meta.ID)
	assert.Equal(t, decoded["metrics"].(map[string]any)["accuracy"], 1.0)
}
