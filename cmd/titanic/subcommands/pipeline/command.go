package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/common"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/configs"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	kpipeline "github.com/Rocosso/titanic-ml-pipeline/pkg/pipeline"
	"github.com/labstack/gommon/log"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Config string `flag:"config" help:"pipeline yaml. Without it, every setting takes its default"`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Preprocess, train and register a model in one run.",
		Flags{},
		flarc.Args{},
		common.NewTask(Task),
	)
}

func Task(ctx context.Context, logger *log.Logger, _ common.CommonFlags, cl flarc.Commandline[Flags]) error {
	return Execute(ctx, logger, cl.Stdout(), cl.Flags())
}

func Execute(ctx context.Context, logger logging.Logger, stdout io.Writer, flags Flags) error {
	cfg := configs.Default()
	if flags.Config != "" {
		c, err := configs.Load(flags.Config)
		if err != nil {
			return err
		}
		cfg = c
	}

	res, err := kpipeline.Run(ctx, cfg, kpipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	fmt.Fprintf(
		stdout, "Model accuracy: %v\nregistered %s version %d (%s): %s\n",
		res.Train.Accuracy, res.Package.Group, res.Package.Version, res.Package.Status, res.Package.Artifact,
	)
	return nil
}
