package train_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/preprocess"
	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/train"
	"github.com/Rocosso/titanic-ml-pipeline/internal/testutils"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"github.com/youta-t/flarc"
	"gotest.tools/v3/assert"
)

func TestPreprocessThenTrain(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "raw/titanic.csv", testutils.RawTitanic)

	var out bytes.Buffer
	err := preprocess.Execute(ctx, logging.Null(), &out, preprocess.Flags{
		InputData:  filepath.Join(dir, "raw"),
		OutputData: filepath.Join(dir, "processed"),
		TestSize:   0.2,
		Seed:       42,
	})
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out.String(), "(8 rows)"))
	assert.Assert(t, strings.Contains(out.String(), "(2 rows)"))

	out.Reset()
	err = train.Execute(ctx, logging.Null(), &out, train.Flags{
		NEstimators:    100,
		MinSamplesLeaf: 3,
		RandomState:    42,
		NJobs:          1,
		Train:          filepath.Join(dir, "processed", "train"),
		Test:           filepath.Join(dir, "processed", "test"),
		ModelDir:       filepath.Join(dir, "model"),
	})
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(out.String(), "Model accuracy: "))

	_, err = model.LoadArtifact(filepath.Join(dir, "model", model.ArtifactFileName))
	assert.NilError(t, err)
}

func TestUsageErrors(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	err := train.Execute(ctx, logging.Null(), &out, train.Flags{NEstimators: 10, MinSamplesLeaf: 1, NJobs: 1})
	assert.Assert(t, errors.Is(err, flarc.ErrUsage))

	err = preprocess.Execute(ctx, logging.Null(), &out, preprocess.Flags{TestSize: 0.2})
	assert.Assert(t, errors.Is(err, flarc.ErrUsage))

	err = train.Execute(ctx, logging.Null(), &out, train.Flags{
		NEstimators: 0, MinSamplesLeaf: 1, NJobs: 1, Train: "a", Test: "b", ModelDir: "c",
	})
	assert.Assert(t, errors.Is(err, errtypes.ErrInvalidParameter))
}

func TestTrainForestFlags(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutils.WriteFile(t, dir, "raw/titanic.csv", testutils.RawTitanic)

	var out bytes.Buffer
	assert.NilError(t, preprocess.Execute(ctx, logging.Null(), &out, preprocess.Flags{
		InputData:  filepath.Join(dir, "raw"),
		OutputData: filepath.Join(dir, "processed"),
		TestSize:   0.2,
		Seed:       42,
	}))

	err := train.Execute(ctx, logging.Null(), &out, train.Flags{
		NEstimators:    10,
		MinSamplesLeaf: 1,
		RandomState:    42,
		NJobs:          2,
		MaxDepth:       2,
		MaxFeatures:    3,
		NoBootstrap:    true,
		Train:          filepath.Join(dir, "processed", "train"),
		Test:           filepath.Join(dir, "processed", "test"),
		ModelDir:       filepath.Join(dir, "model"),
	})
	assert.NilError(t, err)

	a, err := model.LoadArtifact(filepath.Join(dir, "model", model.ArtifactFileName))
	assert.NilError(t, err)
	hp := a.Meta.Hyperparameters
	assert.Equal(t, hp.MaxDepth, 2)
	assert.Equal(t, hp.MaxFeatures, 3)
	assert.Assert(t, hp.NoBootstrap)
	assert.Assert(t, !a.Forest.Bootstrap)
	for _, tree := range a.Forest.Trees {
		assert.Assert(t, tree.Depth() <= 2)
		assert.Equal(t, tree.MaxFeatures, 3)
	}
}
