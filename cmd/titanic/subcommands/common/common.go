package common

import (
	"context"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/configs"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/labstack/gommon/log"
	"github.com/youta-t/flarc"
)

// CommonFlags are accepted by every subcommand.
type CommonFlags struct {
	LogLevel string `flag:"log-level" help:"debug, info, warn, error or off (env TITANIC_LOG_LEVEL)"`
}

func DefaultCommonFlags() CommonFlags {
	return CommonFlags{LogLevel: configs.Env(configs.EnvLogLevel, "info")}
}

type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	commonFlag CommonFlags,
	cl flarc.Commandline[T],
) error

// NewTask finds the CommonFlags among the group parameters and builds a
// logger writing to the command's stderr.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], params []any) error {
		commonFlag := DefaultCommonFlags()
		for _, p := range params {
			if v, ok := p.(CommonFlags); ok {
				commonFlag = v
			}
		}

		logger := logging.New(cl.Fullname(), commonFlag.LogLevel)
		logger.SetOutput(cl.Stderr())
		return task(ctx, logger, commonFlag, cl)
	}
}
