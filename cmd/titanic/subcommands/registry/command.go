package registry

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/common"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/configs"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/registry"
	"github.com/labstack/gommon/log"
	"github.com/youta-t/flarc"
)

type Flags struct {
	DSN   string `flag:"dsn" help:"registry database"`
	Group string `flag:"group" help:"model package group"`
}

const ARG_VERSION = "VERSION"

func defaultFlags() Flags {
	def := configs.Default()
	return Flags{DSN: def.RegistryDSN(), Group: def.Registry.Group}
}

func New() (flarc.Command, error) {
	list, err := flarc.NewCommand(
		"List the model packages of a group.",
		defaultFlags(),
		flarc.Args{},
		common.NewTask(func(ctx context.Context, _ *log.Logger, _ common.CommonFlags, cl flarc.Commandline[Flags]) error {
			return List(ctx, cl.Stdout(), cl.Flags())
		}),
	)
	if err != nil {
		return nil, err
	}

	approve, err := newApproval("Approve a model package version for serving.", registry.Approved)
	if err != nil {
		return nil, err
	}
	reject, err := newApproval("Reject a model package version.", registry.Rejected)
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Inspect and approve registered models.",
		struct{}{},
		flarc.WithSubcommand("list", list),
		flarc.WithSubcommand("approve", approve),
		flarc.WithSubcommand("reject", reject),
	)
}

func newApproval(help string, status registry.Status) (flarc.Command, error) {
	return flarc.NewCommand(
		help,
		defaultFlags(),
		flarc.Args{
			{
				Name: ARG_VERSION, Required: true,
				Help: "version of the model package",
			},
		},
		common.NewTask(func(ctx context.Context, logger *log.Logger, _ common.CommonFlags, cl flarc.Commandline[Flags]) error {
			version, err := strconv.Atoi(cl.Args()[ARG_VERSION][0])
			if err != nil {
				return fmt.Errorf("%w: %s is not a version number", flarc.ErrUsage, cl.Args()[ARG_VERSION][0])
			}
			if err := SetStatus(ctx, cl.Flags(), version, status); err != nil {
				return err
			}
			logger.Infof("%s version %d is %s", cl.Flags().Group, version, status)
			return nil
		}),
	)
}

func List(ctx context.Context, stdout io.Writer, flags Flags) error {
	reg, err := registry.Open(ctx, flags.DSN)
	if err != nil {
		return err
	}
	defer reg.Close()

	pkgs, err := reg.List(ctx, flags.Group)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tACCURACY\tCREATED\tMODEL\tARTIFACT")
	for _, p := range pkgs {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%s\t%s\t%s\n",
			p.Version, p.Status, p.Accuracy, p.CreatedAt.Format(time.RFC3339), p.ModelID, p.Artifact)
	}
	return w.Flush()
}

func SetStatus(ctx context.Context, flags Flags, version int, status registry.Status) error {
	reg, err := registry.Open(ctx, flags.DSN)
	if err != nil {
		return err
	}
	defer reg.Close()
	return reg.UpdateApproval(ctx, flags.Group, version, status)
}
