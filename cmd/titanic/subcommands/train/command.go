package train

import (
	"context"
	"fmt"
	"io"

	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/common"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/configs"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/model"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/pipeline"
	"github.com/labstack/gommon/log"
	"github.com/youta-t/flarc"
)

type Flags struct {
	NEstimators    int `flag:"n-estimators" help:"number of trees"`
	MinSamplesLeaf int `flag:"min-samples-leaf" help:"minimum number of samples in a leaf"`
	RandomState    int `flag:"random-state" help:"seed of the forest"`
	NJobs          int `flag:"n-jobs" help:"trees fitted concurrently"`
	CVFolds        int `flag:"cv-folds" help:"k-fold cross-validation of the train partition. 0 to skip"`
	MaxDepth       int `flag:"max-depth" help:"maximum depth of a tree. 0 for no limit"`
	MaxFeatures    int `flag:"max-features" help:"features considered per split. 0 for sqrt of the feature count"`

	MinImpurityDecrease float64 `flag:"min-impurity-decrease" help:"minimum impurity decrease of a split"`
	NoBootstrap         bool    `flag:"no-bootstrap" help:"fit every tree on the whole train partition"`

	Train     string `flag:"train" help:"train.csv, or its directory (env SM_CHANNEL_TRAIN)"`
	Test      string `flag:"test" help:"test.csv, or its directory (env SM_CHANNEL_TEST)"`
	ModelDir  string `flag:"model-dir" help:"directory receiving model.gob.xz (env SM_MODEL_DIR)"`
	ReportDir string `flag:"report-dir" help:"directory receiving metrics.json and charts. optional"`
}

func New() (flarc.Command, error) {
	hp := model.DefaultHyperparameters()
	return flarc.NewCommand(
		"Fit a random forest on the train partition and report its test accuracy.",
		Flags{
			NEstimators:    hp.NEstimators,
			MinSamplesLeaf: hp.MinSamplesLeaf,
			RandomState:    int(hp.RandomState),
			NJobs:          hp.NJobs,
			Train:          configs.Env(configs.EnvChannelTrain, ""),
			Test:           configs.Env(configs.EnvChannelTest, ""),
			ModelDir:       configs.Env(configs.EnvModelDir, ""),
		},
		flarc.Args{},
		common.NewTask(Task),
	)
}

func Task(ctx context.Context, logger *log.Logger, _ common.CommonFlags, cl flarc.Commandline[Flags]) error {
	return Execute(ctx, logger, cl.Stdout(), cl.Flags())
}

func Execute(ctx context.Context, logger logging.Logger, stdout io.Writer, flags Flags) error {
	if flags.Train == "" || flags.Test == "" || flags.ModelDir == "" {
		return fmt.Errorf("%w: --train, --test and --model-dir are required", flarc.ErrUsage)
	}
	res, err := pipeline.Train(ctx, pipeline.TrainInput{
		Train:     flags.Train,
		Test:      flags.Test,
		ModelDir:  flags.ModelDir,
		ReportDir: flags.ReportDir,
		CVFolds:   flags.CVFolds,
		Hyperparameters: model.Hyperparameters{
			NEstimators:    flags.NEstimators,
			MinSamplesLeaf: flags.MinSamplesLeaf,
			RandomState:    int64(flags.RandomState),
			NJobs:          flags.NJobs,

			MaxDepth:            flags.MaxDepth,
			MaxFeatures:         flags.MaxFeatures,
			MinImpurityDecrease: flags.MinImpurityDecrease,
			NoBootstrap:         flags.NoBootstrap,
		},
	}, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Model accuracy: %v\n", res.Accuracy)
	return nil
}

