package model

import "gonum.org/v1/gonum/mat"

// Classifier is a supervised model over integer class labels.
type Classifier interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) []int
	// PredictProba returns one probability per class, ordered as Labels.
	PredictProba(X mat.Matrix) [][]float64
	Labels() []int
}

// Ensemble is a classifier that can report feature importances.
type Ensemble interface {
	Classifier
	FeatureImportances() []float64
}

var (
	_ Classifier = (*DecisionTreeClassifier)(nil)
	_ Ensemble   = (*RandomForest)(nil)
)

// ProbaOf extracts the probability of label from PredictProba output.
// It is zero for a label the model never saw.
func ProbaOf(m Classifier, proba [][]float64, label int) []float64 {
	out := make([]float64, len(proba))
	for k, l := range m.Labels() {
		if l != label {
			continue
		}
		for i, p := range proba {
			out[i] = p[k]
		}
	}
	return out
}
