package preprocess

import (
	"context"
	"fmt"
	"io"

	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/common"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/configs"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/loader"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/pipeline"
	"github.com/labstack/gommon/log"
	"github.com/youta-t/flarc"
)

type Flags struct {
	InputData  string  `flag:"input-data" help:"raw csv, or a directory holding titanic.csv (env SM_CHANNEL_RAW)"`
	OutputData string  `flag:"output-data" help:"directory receiving train/ and test/"`
	TestSize   float64 `flag:"test-size" help:"fraction of rows held out for testing"`
	Seed       int     `flag:"seed" help:"seed of the train/test split"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Clean and encode the raw passenger list and split it into train and test partitions.",
		Flags{
			InputData:  configs.Env(configs.EnvChannelRaw, "/opt/ml/processing/input"),
			OutputData: "/opt/ml/processing",
			TestSize:   loader.DefaultTestSize,
			Seed:       loader.DefaultSeed,
		},
		flarc.Args{},
		common.NewTask(Task),
	)
}

func Task(ctx context.Context, logger *log.Logger, _ common.CommonFlags, cl flarc.Commandline[Flags]) error {
	return Execute(ctx, logger, cl.Stdout(), cl.Flags())
}

func Execute(ctx context.Context, logger logging.Logger, stdout io.Writer, flags Flags) error {
	if flags.InputData == "" || flags.OutputData == "" {
		return fmt.Errorf("%w: --input-data and --output-data are required", flarc.ErrUsage)
	}
	res, err := pipeline.Preprocess(
		ctx, flags.InputData, flags.OutputData,
		pipeline.WithLogger(logger),
		pipeline.WithSplit(flags.TestSize, int64(flags.Seed)),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "train: %s (%d rows)\ntest: %s (%d rows)\n", res.TrainPath, res.TrainRows, res.TestPath, res.TestRows)
	return nil
}
