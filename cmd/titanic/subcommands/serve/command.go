package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/common"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/configs"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/inference"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/registry"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/server"
	"github.com/labstack/gommon/log"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model    string `flag:"model" help:"model artifact to serve"`
	Registry string `flag:"registry" help:"registry dsn. Serves the latest approved model of --group when --model is not given"`
	Group    string `flag:"group" help:"model package group"`
	Port     int    `flag:"port" help:"port to listen on"`

	GracefulPeriod time.Duration `flag:"graceful-period" help:"how long in-flight requests may take on shutdown"`
}

func New() (flarc.Command, error) {
	def := configs.Default()
	return flarc.NewCommand(
		"Serve survival predictions over HTTP until interrupted.",
		Flags{
			Group:          def.Registry.Group,
			Port:           def.Serve.Port,
			GracefulPeriod: 30 * time.Second,
		},
		flarc.Args{},
		common.NewTask(Task),
	)
}

func Task(ctx context.Context, logger *log.Logger, commonFlag common.CommonFlags, cl flarc.Commandline[Flags]) error {
	p, err := Predictor(ctx, logger, cl.Flags())
	if err != nil {
		return err
	}
	e := server.Build(p, commonFlag.LogLevel)
	e.Logger.SetOutput(cl.Stderr())
	logger.Infof("serving model %s on port %d", p.Meta().ID, cl.Flags().Port)
	return server.Start(ctx, e, cl.Flags().Port, server.WithGracefulPeriod(cl.Flags().GracefulPeriod))
}

// Predictor loads the artifact chosen by flags.
func Predictor(ctx context.Context, logger logging.Logger, flags Flags) (*inference.Predictor, error) {
	artifact := flags.Model
	if artifact == "" {
		if flags.Registry == "" {
			return nil, fmt.Errorf("%w: --model or --registry is required", flarc.ErrUsage)
		}
		reg, err := registry.Open(ctx, flags.Registry)
		if err != nil {
			return nil, err
		}
		defer reg.Close()

		pkg, err := reg.LatestApproved(ctx, flags.Group)
		if err != nil {
			return nil, fmt.Errorf("no approved model in %s: %w", flags.Group, err)
		}
		logger.Infof("%s version %d is the latest approved model", pkg.Group, pkg.Version)
		artifact = pkg.Artifact
	}
	return inference.LoadPredictor(artifact)
}
