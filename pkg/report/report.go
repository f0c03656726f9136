// Package report renders training results: a feature importance chart and
// a JSON evaluation report.
package report

import (
	"encoding/json"
	"io"
	"math"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	MetricsFileName    = "metrics.json"
	ImportanceFileName = "feature_importance.png"
)

// FeatureImportancePlot writes a PNG bar chart of importances, one bar per name.
func FeatureImportancePlot(names []string, importances []float64, path string) error {
	chart, err := ImportanceChart(names, importances)
	if err != nil {
		return err
	}
	return data.WriteFileAtomic(path, chart)
}

// ImportanceChart renders the chart of FeatureImportancePlot. The returned
// function writes it as PNG.
func ImportanceChart(names []string, importances []float64) (func(io.Writer) error, error) {
	if len(names) == 0 || len(names) != len(importances) {
		return nil, errtypes.InvalidParameter("%d feature names for %d importances", len(names), len(importances))
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.Y.Label.Text = "Mean impurity decrease"

	bars, err := plotter.NewBarChart(plotter.Values(importances), vg.Points(20))
	if err != nil {
		return nil, errtypes.DataFormat("importances: %s", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, errtypes.IO(err, "render importance chart")
	}
	return func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	}, nil
}

// Metrics is the evaluation report of a training run.
type Metrics struct {
	ModelID            string             `json:"model_id"`
	Metrics            model.Scores       `json:"metrics"`
	ConfusionMatrix    [][]int            `json:"confusion_matrix"`
	Labels             []int              `json:"labels"`
	FeatureImportances map[string]float64 `json:"feature_importances"`
	ThresholdedMetrics *model.Scores      `json:"thresholded_metrics,omitempty"`
	CVAccuracy         []float64          `json:"cv_accuracy,omitempty"`
}

// NewMetrics pairs the scores of a test partition with the importances of a.
func NewMetrics(a *model.Artifact, yTrue, yPred []int) (*Metrics, error) {
	labels, counts, err := model.ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	m := &Metrics{
		ModelID:            a.Meta.ID,
		Metrics:            a.Meta.Scores,
		ConfusionMatrix:    counts,
		Labels:             labels,
		FeatureImportances: map[string]float64{},
	}
	for i, v := range a.Forest.FeatureImportances() {
		if i < len(a.Meta.Features) {
			m.FeatureImportances[a.Meta.Features[i]] = v
		}
	}
	return m, nil
}

// Write saves m as indented JSON.
func (m *Metrics) Write(path string) error {
	return data.WriteFileAtomic(path, m.Encode)
}

func (m *Metrics) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
