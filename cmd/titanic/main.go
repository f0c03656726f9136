package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/common"
	subpipeline "github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/pipeline"
	subpreprocess "github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/preprocess"
	subregistry "github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/registry"
	subserve "github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/serve"
	subtrain "github.com/Rocosso/titanic-ml-pipeline/cmd/titanic/subcommands/train"
	"github.com/Rocosso/titanic-ml-pipeline/pkg/logging"
	"github.com/youta-t/flarc"
)

func main() {
	logger := logging.New("titanic", "info")

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	preprocess, err := subpreprocess.New()
	if err != nil {
		logger.Fatalf("%+v", err)
	}
	train, err := subtrain.New()
	if err != nil {
		logger.Fatalf("%+v", err)
	}
	pipeline, err := subpipeline.New()
	if err != nil {
		logger.Fatalf("%+v", err)
	}
	serve, err := subserve.New()
	if err != nil {
		logger.Fatalf("%+v", err)
	}
	registry, err := subregistry.New()
	if err != nil {
		logger.Fatalf("%+v", err)
	}

	titanic, err := flarc.NewCommandGroup(
		"Titanic survival model: preprocessing, training, registry and serving.",
		common.DefaultCommonFlags(),
		flarc.WithSubcommand("preprocess", preprocess),
		flarc.WithSubcommand("train", train),
		flarc.WithSubcommand("pipeline", pipeline),
		flarc.WithSubcommand("serve", serve),
		flarc.WithSubcommand("registry", registry),
	)
	if err != nil {
		logger.Fatalf("%+v", err)
	}

	os.Exit(flarc.Run(ctx, titanic, flarc.WithHelp(true)))
}
