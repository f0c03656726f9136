package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/data"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/dataprep"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/report"
	pkgerrors "github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TrainInput locates the partitions and outputs of a training run.
type TrainInput struct {
	// Train and Test are csv files, or directories holding train.csv and test.csv.
	Train    string
	Test     string
	ModelDir string
	// ReportDir receives metrics.json and the importance chart. Empty skips them.
	ReportDir       string
	Hyperparameters model.Hyperparameters
	// CVFolds > 1 adds a k-fold cross-validation of the train partition to the report.
	CVFolds int
}

// SurvivalThreshold is the survival probability from which the report's
// thresholded metrics count a passenger as survived.
const SurvivalThreshold = 0.5

type TrainResult struct {
	Accuracy float64
	Scores   model.Scores
	// ThresholdedScores score PredictProba against SurvivalThreshold
	// instead of the majority vote.
	ThresholdedScores model.Scores
	CVAccuracy        []float64
	ArtifactPath      string
	Artifact          *model.Artifact
}

// Train fits a random forest on the train partition and scores it on the
// test partition. The artifact is written to ModelDir/model.gob.xz.
//
// The artifact and the report appear together or not at all.
//
// A transform.json next to the train csv is embedded in the artifact so
// the model can encode raw inference requests.
func Train(ctx context.Context, in TrainInput, opts ...Option) (*TrainResult, error) {
	o := buildOptions(opts)
	log := o.logger
	hp := in.Hyperparameters

	if err := hp.Validate(); err != nil {
		return nil, err
	}
	log.Infof("hyperparameters: n_estimators=%d min_samples_leaf=%d random_state=%d n_jobs=%d"+
		" max_depth=%d max_features=%d min_impurity_decrease=%v bootstrap=%t",
		hp.NEstimators, hp.MinSamplesLeaf, hp.RandomState, hp.NJobs,
		hp.MaxDepth, hp.MaxFeatures, hp.MinImpurityDecrease, !hp.NoBootstrap)

	trainPath := resolve(in.Train, TrainFileName)
	testPath := resolve(in.Test, TestFileName)
	trainTbl, trainSchema, err := readPartition(trainPath)
	if err != nil {
		return nil, err
	}
	testTbl, testSchema, err := readPartition(testPath)
	if err != nil {
		return nil, err
	}
	if err := trainSchema.Check(testSchema); err != nil {
		return nil, err
	}
	log.Infof("train rows=%d test rows=%d features=%v", trainTbl.Len(), testTbl.Len(), trainSchema.FeatureNames)

	tr, err := siblingTransform(trainPath, trainSchema)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		log.Warnf("no %s next to %s: artifact will only accept encoded features", dataprep.TransformFileName, trainPath)
	}

	XTrain, yTrain, err := xy(trainTbl, trainSchema)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, trainPath)
	}
	XTest, yTest, err := xy(testTbl, testSchema)
	if err != nil {
		return nil, pkgerrors.WithMessage(err, testPath)
	}

	var cv []float64
	if in.CVFolds > 1 {
		cv, err = model.CrossValidate(ctx, hp, XTrain, yTrain, in.CVFolds)
		if err != nil {
			return nil, pkgerrors.WithMessage(err, "cross-validation")
		}
		log.Infof("%d-fold cross-validation accuracy: %v", in.CVFolds, cv)
	}

	forest := hp.Forest()
	if err := forest.FitContext(ctx, XTrain, yTrain); err != nil {
		return nil, err
	}
	for i, t := range forest.Trees {
		log.Debugf("tree %d: depth=%d leaves=%d", i, t.Depth(), t.Leaves())
	}

	yPred := forest.Predict(XTest)
	scores, err := model.Evaluate(yTest, yPred)
	if err != nil {
		return nil, err
	}
	log.Infof("Model accuracy: %v", scores.Accuracy)

	survival := model.ProbaOf(forest, forest.PredictProba(XTest), 1)
	thresholded, err := model.Evaluate(yTest, model.BinaryPredFromProba(survival, SurvivalThreshold))
	if err != nil {
		return nil, err
	}
	log.Infof("accuracy at survival probability >= %v: %v", SurvivalThreshold, thresholded.Accuracy)

	artifact := model.NewArtifact(forest, tr, model.Meta{
		Hyperparameters: hp,
		Features:        trainSchema.FeatureNames,
		TrainRows:       trainTbl.Len(),
		TestRows:        testTbl.Len(),
		Scores:          scores,
	}, o.now())
	res := &TrainResult{
		Accuracy:          scores.Accuracy,
		Scores:            scores,
		ThresholdedScores: thresholded,
		CVAccuracy:        cv,
		ArtifactPath:      filepath.Join(in.ModelDir, model.ArtifactFileName),
		Artifact:          artifact,
	}

	// the artifact and the report are committed together
	st := new(data.Staged)
	defer st.Discard()
	if err := st.Write(res.ArtifactPath, artifact.Encode); err != nil {
		return nil, err
	}
	if in.ReportDir != "" {
		m, err := report.NewMetrics(artifact, yTest, yPred)
		if err != nil {
			return nil, err
		}
		m.ThresholdedMetrics = &thresholded
		m.CVAccuracy = cv
		if err := stageReport(st, in.ReportDir, m, artifact); err != nil {
			return nil, err
		}
	}
	if err := st.Commit(); err != nil {
		return nil, err
	}
	log.Infof("saved model %s to %s", artifact.Meta.ID, res.ArtifactPath)
	if in.ReportDir != "" {
		log.Infof("wrote report to %s", in.ReportDir)
	}
	return res, nil
}

func readPartition(path string) (*data.Table, Schema, error) {
	tbl, err := data.ReadCSV(path)
	if err != nil {
		return nil, Schema{}, err
	}
	s, err := SchemaOf(tbl)
	if err != nil {
		return nil, Schema{}, pkgerrors.WithMessage(err, path)
	}
	if tbl.Len() == 0 {
		return nil, Schema{}, errtypes.DataFormat("%s has no rows", path)
	}
	return tbl, s, nil
}

func xy(t *data.Table, s Schema) (*mat.Dense, []int, error) {
	X, err := t.Matrix(s.FeatureNames)
	if err != nil {
		return nil, nil, err
	}
	y, err := s.Labels(t)
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

// siblingTransform loads the transform persisted next to the train csv.
// It is nil when there is none.
func siblingTransform(trainPath string, s Schema) (*dataprep.Transform, error) {
	path := filepath.Join(filepath.Dir(trainPath), dataprep.TransformFileName)
	tr, err := dataprep.LoadTransform(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !slices.Equal(tr.Features, s.FeatureNames) {
		return nil, errtypes.DataFormat("%s encodes %v but the partitions hold %v", path, tr.Features, s.FeatureNames)
	}
	return tr, nil
}

func stageReport(st *data.Staged, dir string, m *report.Metrics, a *model.Artifact) error {
	if err := st.Write(filepath.Join(dir, report.MetricsFileName), m.Encode); err != nil {
		return err
	}
	chart, err := report.ImportanceChart(a.Meta.Features, a.Forest.FeatureImportances())
	if err != nil {
		return err
	}
	return st.Write(filepath.Join(dir, report.ImportanceFileName), chart)
}
