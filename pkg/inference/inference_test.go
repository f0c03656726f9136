package inference_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/internal/testutils"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/dataprep"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/inference"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"github.com/labstack/echo/v4"
	"gotest.tools/v3/assert"
)

const passenger = `{"Pclass":3,"Sex":"male","Age":22,"SibSp":1,"Parch":0,"Fare":7.25,"Embarked":"S","HasCabin":0,"FamilySize":2}`

func artifact(t *testing.T) *model.Artifact {
	t.Helper()
	raw, err := data.ReadCSVFrom(strings.NewReader(testutils.Passengers(2)))
	assert.NilError(t, err)
	cleaned, tr, err := dataprep.Clean(raw)
	assert.NilError(t, err)

	X, err := cleaned.Matrix(dataprep.FeatureColumns)
	assert.NilError(t, err)
	y := make([]int, cleaned.Len())
	for i := range y {
		v, err := cleaned.Float(i, dataprep.Survived)
		assert.NilError(t, err)
		y[i] = int(v)
	}

	rf := model.NewRandomForest(model.WithNEstimators(20), model.WithLeafSize(1))
	assert.NilError(t, rf.Fit(X, y))
	return model.NewArtifact(rf, tr, model.Meta{Features: dataprep.FeatureColumns}, time.Now())
}

func predictor(t *testing.T) *inference.Predictor {
	t.Helper()
	p, err := inference.NewPredictor(artifact(t))
	assert.NilError(t, err)
	return p
}

func TestDecodeRequest(t *testing.T) {
	req, err := inference.DecodeRequest(strings.NewReader(passenger + "\n"))
	assert.NilError(t, err)
	assert.Equal(t, *req.Pclass, 3)
	assert.Equal(t, *req.Sex, "male")
	assert.Equal(t, *req.Age, 22.0)

	for name, body := range map[string]string{
		"missing Sex":       `{"Pclass":3,"Age":22,"SibSp":1,"Parch":0,"Fare":7.25,"Embarked":"S","HasCabin":0,"FamilySize":2}`,
		"missing Pclass":    `{"Sex":"male","SibSp":1,"Parch":0,"HasCabin":0,"FamilySize":2}`,
		"Pclass too large":  `{"Pclass":4,"Sex":"male","SibSp":1,"Parch":0,"HasCabin":0,"FamilySize":2}`,
		"negative Parch":    `{"Pclass":1,"Sex":"male","SibSp":1,"Parch":-1,"HasCabin":0,"FamilySize":2}`,
		"HasCabin not flag": `{"Pclass":1,"Sex":"male","SibSp":1,"Parch":0,"HasCabin":2,"FamilySize":2}`,
		"empty family":      `{"Pclass":1,"Sex":"male","SibSp":0,"Parch":0,"HasCabin":0,"FamilySize":0}`,
		"negative Fare":     `{"Pclass":1,"Sex":"male","SibSp":0,"Parch":0,"HasCabin":0,"FamilySize":1,"Fare":-3}`,
		"wrong type":        `{"Pclass":"first","Sex":"male","SibSp":0,"Parch":0,"HasCabin":0,"FamilySize":1}`,
		"unknown field":     `{"Pclass":1,"Sex":"male","SibSp":0,"Parch":0,"HasCabin":0,"FamilySize":1,"Deck":"B"}`,
		"not json":          `Pclass=1`,
		"two objects":       passenger + passenger,
		"trailing brace":    passenger + `}`,
		"trailing value":    passenger + ` 1`,
		"empty":             ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := inference.DecodeRequest(strings.NewReader(body))
			assert.Assert(t, errors.Is(err, inference.ErrInvalidRequest), "got %v", err)
			assert.Assert(t, errors.Is(err, errtypes.ErrInference))
		})
	}
}

func TestPredict(t *testing.T) {
	p := predictor(t)

	req, err := inference.DecodeRequest(strings.NewReader(passenger + "\n"))
	assert.NilError(t, err)
	pred, err := p.Predict(req)
	assert.NilError(t, err)
	assert.Assert(t, 0 <= pred.Probability && pred.Probability <= 1, "probability %v", pred.Probability)
	assert.Equal(t, pred.ModelID, p.Meta().ID)

	t.Run("optional fields are imputed", func(t *testing.T) {
		req, err := inference.DecodeRequest(strings.NewReader(
			`{"Pclass":1,"Sex":"female","SibSp":0,"Parch":0,"HasCabin":1,"FamilySize":1}`,
		))
		assert.NilError(t, err)
		_, err = p.Predict(req)
		assert.NilError(t, err)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		req, err := inference.DecodeRequest(strings.NewReader(
			`{"Pclass":1,"Sex":"female","SibSp":0,"Parch":0,"HasCabin":1,"FamilySize":1,"Embarked":"X"}`,
		))
		assert.NilError(t, err)
		_, err = p.Predict(req)
		assert.Assert(t, errors.Is(err, inference.ErrInvalidRequest), "got %v", err)
	})

	t.Run("unvalidated request is rejected", func(t *testing.T) {
		_, err := p.Predict(inference.Request{})
		assert.Assert(t, errors.Is(err, inference.ErrInvalidRequest))
	})
}

func TestNewPredictorRejects(t *testing.T) {
	a := artifact(t)
	a.Transform = nil
	_, err := inference.NewPredictor(a)
	assert.Assert(t, errors.Is(err, errtypes.ErrInference))

	a = artifact(t)
	a.Meta.Features = []string{"Pclass"}
	_, err = inference.NewPredictor(a)
	assert.Assert(t, errors.Is(err, errtypes.ErrInference))

	_, err = inference.NewPredictor(nil)
	assert.Assert(t, errors.Is(err, errtypes.ErrInference))
}

func TestLoadPredictor(t *testing.T) {
	a := artifact(t)
	path := filepath.Join(t.TempDir(), model.ArtifactFileName)
	assert.NilError(t, model.SaveArtifact(path, a))

	p, err := inference.LoadPredictor(path)
	assert.NilError(t, err)
	assert.Equal(t, p.Meta().ID, a.Meta.ID)

	_, err = inference.LoadPredictor(filepath.Join(t.TempDir(), "absent"))
	assert.Assert(t, errors.Is(err, errtypes.ErrIO))
}

func TestRespond(t *testing.T) {
	ok := inference.Respond(inference.Prediction{Survived: false, Probability: 0.25, ModelID: "m"}, nil)
	assert.Equal(t, ok.Status, inference.StatusSuccess)
	assert.Equal(t, *ok.Survived, false)
	assert.Equal(t, *ok.Probability, 0.25)
	assert.Equal(t, ok.Message, "")

	failed := inference.Respond(inference.Prediction{}, errtypes.Inference("boom"))
	assert.Equal(t, failed.Status, inference.StatusError)
	assert.Assert(t, failed.Message != "")
	assert.Assert(t, failed.Survived == nil && failed.Probability == nil)
}

func TestHandler(t *testing.T) {
	h := inference.Handler(predictor(t))

	for name, testcase := range map[string]struct {
		body       string
		wantCode   int
		wantStatus string
	}{
		"success":       {body: passenger, wantCode: http.StatusOK, wantStatus: inference.StatusSuccess},
		"missing field": {body: `{"Pclass":3}`, wantCode: http.StatusBadRequest, wantStatus: inference.StatusError},
		"not json":      {body: `{`, wantCode: http.StatusBadRequest, wantStatus: inference.StatusError},
	} {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(testcase.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			assert.NilError(t, h(e.NewContext(req, rec)))
			assert.Equal(t, rec.Code, testcase.wantCode)

			var got map[string]any
			assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, got["status"], testcase.wantStatus)
			if testcase.wantStatus == inference.StatusError {
				msg, _ := got["message"].(string)
				assert.Assert(t, msg != "", "error responses carry a message")
				return
			}
			_, isBool := got["survived"].(bool)
			assert.Assert(t, isBool)
			prob := got["probability"].(float64)
			assert.Assert(t, 0 <= prob && prob <= 1)
		})
	}
}

func TestHandlerModelFailure(t *testing.T) {
	a := artifact(t)
	leaf := &model.Node{Leaf: true, Probas: []float64{0.5, 0.5}}
	a.Forest.Trees[0].Root = &model.Node{Feature: len(a.Meta.Features) + 1, Left: leaf, Right: leaf}
	p, err := inference.NewPredictor(a)
	assert.NilError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(passenger))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	assert.NilError(t, inference.Handler(p)(e.NewContext(req, rec)))
	assert.Equal(t, rec.Code, http.StatusInternalServerError)

	var got inference.Response
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, got.Status, inference.StatusError)
	assert.Assert(t, strings.Contains(got.Message, "model failure"), "got %q", got.Message)
	assert.Assert(t, got.Survived == nil && got.Probability == nil)
}
