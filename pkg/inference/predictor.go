package inference

import (
	"slices"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"gonum.org/v1/gonum/mat"
)

const survivedLabel = 1

type Prediction struct {
	Survived    bool
	Probability float64 // probability of survival
	ModelID     string
}

// Predictor scores requests with one artifact. It is safe for concurrent use.
type Predictor struct {
	artifact *model.Artifact
}

// NewPredictor checks that a can encode raw requests.
func NewPredictor(a *model.Artifact) (*Predictor, error) {
	if a == nil || a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, errtypes.Inference("artifact has no fitted forest")
	}
	if a.Transform == nil {
		return nil, errtypes.Inference("artifact %s has no feature transform", a.Meta.ID)
	}
	if !slices.Equal(a.Transform.Features, a.Meta.Features) || len(a.Meta.Features) != a.Forest.NFeatures {
		return nil, errtypes.Inference(
			"artifact %s: transform features %v do not match model features %v",
			a.Meta.ID, a.Transform.Features, a.Meta.Features,
		)
	}
	return &Predictor{artifact: a}, nil
}

// LoadPredictor reads an artifact from path.
func LoadPredictor(path string) (*Predictor, error) {
	a, err := model.LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return NewPredictor(a)
}

func (p *Predictor) Meta() model.Meta { return p.artifact.Meta }

// Predict validates, encodes and scores req.
func (p *Predictor) Predict(req Request) (Prediction, error) {
	if err := req.Validate(); err != nil {
		return Prediction{}, err
	}
	vec, err := p.artifact.Transform.Vector(req.Record())
	if err != nil {
		return Prediction{}, invalid("%s", err)
	}

	forest := p.artifact.Forest
	X := mat.NewDense(1, len(vec), vec)
	proba := forest.PredictProba(X)
	label := forest.Predict(X)[0]
	survival := model.ProbaOf(forest, proba, survivedLabel)[0]
	if survival < 0 || 1 < survival {
		return Prediction{}, errtypes.Inference("probability out of range: %v", survival)
	}
	return Prediction{
		Survived:    label == survivedLabel,
		Probability: survival,
		ModelID:     p.artifact.Meta.ID,
	}, nil
}
